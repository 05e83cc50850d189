// Package logging builds the slog loggers used by the server and taskctl.
package logging

import (
	"io"
	"log/slog"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a JSON logger, or for format "text" a human-readable one
// backed by charmbracelet/log.
func New(w io.Writer, level, format string) *slog.Logger {
	l := ParseLevel(level)
	if strings.EqualFold(format, "text") {
		return slog.New(newConsoleHandler(w, l, "", true))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}

// NewConsole is a text logger without timestamps for CLI diagnostics.
func NewConsole(w io.Writer, level, prefix string) *slog.Logger {
	return slog.New(newConsoleHandler(w, ParseLevel(level), prefix, false))
}

func newConsoleHandler(w io.Writer, level slog.Level, prefix string, timestamps bool) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmLevel(level),
		Prefix:          prefix,
		ReportTimestamp: timestamps,
		Formatter:       charmlog.TextFormatter,
	})
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l <= slog.LevelInfo:
		return charmlog.InfoLevel
	case l <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
