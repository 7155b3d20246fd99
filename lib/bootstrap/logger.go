// Copyright 2026 The DC/OS Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the bootstrap logger. When stderr is a terminal it
// uses slog.TextHandler for human-readable output; when stderr is
// piped or journald-captured it uses slog.JSONHandler for structured
// ingestion. Every record carries the process id so interleaved
// concurrent runs on the same node stay distinguishable. It also sets
// the default slog logger so third-party code using slog.Info etc.
// gets the same handler.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}

	logger := slog.New(handler).With("pid", os.Getpid())
	slog.SetDefault(logger)
	return logger
}
