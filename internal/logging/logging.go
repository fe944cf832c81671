// Package logging builds the structured loggers used across podextract.
//
// Logs always go to a writer other than stdout when the MCP server is
// running, since stdout carries the protocol stream.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrUnknownFormat is returned for a log format other than text or json
var ErrUnknownFormat = errors.New("unknown log format")

// ParseLevel maps a level name (debug, info, warn, error) to a slog level
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// New creates a logger writing to w. format is "text" or "json".
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return slog.New(h), nil
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
