// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

// Package provision creates and repairs the directories a node service
// needs before it starts: private per-service state directories with
// exact ownership and mode, and the shared exec-enabled base directory
// they live under. Every operation is idempotent; rerunning bootstrap
// converges to the same end state.
package provision

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// ExecDirectory is the shared base for per-service private directories.
// It lives under /var/lib/dcos because /run and /tmp may be mounted
// noexec on hardened hosts, and some services place executable helpers
// in their private directories. Variable rather than constant to allow
// test overrides.
var ExecDirectory = "/var/lib/dcos/exec"

// KnownExecDirectory ensures the shared exec-enabled base directory
// exists (default permissions, parents included) and returns its path.
// The directory is read-navigable by every service; only the private
// subdirectories underneath it are restricted.
func KnownExecDirectory() (string, error) {
	if err := os.MkdirAll(ExecDirectory, 0o755); err != nil {
		return "", fmt.Errorf("creating exec directory %s: %w", ExecDirectory, err)
	}
	return ExecDirectory, nil
}

// EnsurePrivateDirectory creates path as a private service directory:
// mode 0700, owned by the named user, group left unchanged. Existing
// directories are converged to that state rather than treated as an
// error, so a rerun after a partial bootstrap is safe.
func EnsurePrivateDirectory(path, owner string) error {
	uid, err := lookupUID(owner)
	if err != nil {
		return err
	}

	if err := os.Mkdir(path, 0o700); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}

	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return fmt.Errorf("%s exists and is not a directory", path)
	}

	// Mkdir is subject to the umask and the directory may predate this
	// run with different bits, so converge mode and ownership explicitly.
	if st.Mode&0o777 != 0o700 {
		if err := os.Chmod(path, 0o700); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
	}
	if int(st.Uid) != uid {
		if err := os.Chown(path, uid, -1); err != nil {
			return fmt.Errorf("chown %s to %s: %w", path, owner, err)
		}
	}
	return nil
}

// EnsureDirectory creates path and any missing parents with default
// permissions. No ownership or mode convergence; callers that need a
// specific owner follow up with Chown.
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// Chown transfers user ownership of path to the named user. The group
// is left unchanged.
func Chown(path, owner string) error {
	uid, err := lookupUID(owner)
	if err != nil {
		return err
	}
	if err := os.Chown(path, uid, -1); err != nil {
		return fmt.Errorf("chown %s to %s: %w", path, owner, err)
	}
	return nil
}

// lookupUID resolves a system user name to its numeric UID.
func lookupUID(name string) (int, error) {
	info, err := user.Lookup(name)
	if err != nil {
		return 0, fmt.Errorf("lookup user %q: %w", name, err)
	}
	uid, err := strconv.Atoi(info.Uid)
	if err != nil {
		return 0, fmt.Errorf("parse uid %q for user %q: %w", info.Uid, name, err)
	}
	return uid, nil
}
