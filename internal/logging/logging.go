// Package logging builds the application logger. The terminal belongs to the
// UI, so records go to a file or nowhere.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options selects where and how much to log
type Options struct {
	// Enabled turns logging on. When false everything is discarded.
	Enabled bool
	// Path is the log file. It is created with 0600 and appended to.
	Path string
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// Format is "json" or "text"
	Format string
}

// ParseLevel maps a level name to a slog.Level
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

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// New returns the logger described by opts and a closer for its file.
// The closer is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	if !opts.Enabled || opts.Path == "" {
		return Discard(), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return Discard(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return Discard(), nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
	}

	return slog.New(newHandler(f, opts)), f, nil
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if opts.Format == "json" {
		return slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.NewTextHandler(w, handlerOpts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
