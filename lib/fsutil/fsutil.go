// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsutil provides the filesystem primitives shared by the
// bootstrap components: atomic whole-file writes and single-line reads
// of small marker files.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFileAtomic writes data to path so that a concurrent reader sees
// either the prior content or the complete new content, never a partial
// write. The bytes go to a temporary file in the destination's
// directory (same filesystem, so the final rename is an atomic
// replace), are synced and closed, the permission bits are set on the
// temporary file, and the temporary file is renamed onto path in one
// indivisible step, replacing any existing file.
//
// On failure in any step the temporary file is removed best-effort and
// the destination path is left untouched.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	directory := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(directory, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", directory, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}

	// mkstemp-style temp files are created 0600 regardless of umask;
	// the destination mode is whatever the caller declared.
	if err := os.Chmod(tmpPath, mode.Perm()); err != nil {
		return fmt.Errorf("setting mode %o on %s: %w", mode.Perm(), tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}

	success = true
	return nil
}

// ReadFileLine reads a small marker file (master count, cluster id) and
// returns its first line with surrounding whitespace trimmed.
func ReadFileLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}
