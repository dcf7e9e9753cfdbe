// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the structured logger shared by every package.
//
// Output goes to stderr for line-oriented commands. While the TUI owns the
// terminal, output goes to a log file instead so it cannot corrupt the screen.
// Passwords, reset tokens and prompt text are never passed to the logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/warriorchat/internal/config"
)

// Prefix is the root logger prefix. Packages add their own with WithPrefix.
const Prefix = "warriorchat"

// New creates a logger writing to w at the named level. Unknown levels
// fall back to info.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          Prefix,
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Open returns the logger for a run. With toFile set the logger appends to
// cfg.File (or the default log path) and the returned closer closes it;
// otherwise it writes to stderr and the closer is a no-op.
func Open(cfg config.LogConfig, toFile bool, stderr io.Writer) (*log.Logger, io.Closer, error) {
	if !toFile {
		if stderr == nil {
			stderr = os.Stderr
		}
		return New(stderr, cfg.Level), nopCloser{}, nil
	}

	path := cfg.File
	if path == "" {
		p, err := config.DefaultLogPath()
		if err != nil {
			return nil, nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := New(f, cfg.Level)
	// Files never get ANSI styling
	logger.SetFormatter(log.LogfmtFormatter)
	return logger, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
