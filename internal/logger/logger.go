// Package logger holds the process-wide structured logger used by romkit.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() to enable logging.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	File    string     // Write JSON records to this file instead of text to Output
	Output  io.Writer  // Destination for text records. Default: os.Stderr
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
}

// Init configures logging. Call from main() before any log calls.
// If opts.Enabled is false, all log output is discarded.
func Init(opts Options) error {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		L = slog.New(slog.NewJSONHandler(f, handlerOpts))
		return nil
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	L = slog.New(slog.NewTextHandler(out, handlerOpts))
	return nil
}
