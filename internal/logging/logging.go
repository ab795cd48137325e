// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging sets up the [slog] default logger for the microhop
// programs.
package logging

import (
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/charmbracelet/log"
)

// Level names as used in the configuration file.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelQuiet = "quiet"
)

// levelQuiet is above every level a message can be logged with.
const levelQuiet = log.Level(math.MaxInt32)

// ParseLevel returns the log level for the given name. Unknown names result
// in info level.
func ParseLevel(name string) log.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	case LevelQuiet:
		return levelQuiet
	default:
		return log.InfoLevel
	}
}

// Options configure the logger.
type Options struct {
	// Level is the level name.
	Level string

	// Timestamps enables time stamps with microsecond precision.
	Timestamps bool

	// Prefix is printed in front of every message.
	Prefix string
}

// Setup creates a new logger writing to w and sets it as [slog] default.
func Setup(w io.Writer, opts Options) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(opts.Level),
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
		TimeFormat:      "15:04:05.000000",
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
