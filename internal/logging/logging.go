// Package logging configures the process-wide slog logger.
//
// Plugdeck is a full-screen terminal application, so log output goes to a
// file under the .plugdeck data directory instead of stdout. Headless
// commands (plugdump) log to stderr in text format.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Config controls logger construction.
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
}

// DefaultConfig returns the standard logger settings.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
	}
}

// New builds a logger writing to w and installs it as the slog default.
func New(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default: // "json"
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// NewFileLogger opens (or creates) dataDir/plugdeck.log and builds a logger
// on it. The returned closer must be called at shutdown.
func NewFileLogger(dataDir string, debug bool) (*slog.Logger, func() error, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dataDir, "plugdeck.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	cfg := DefaultConfig()
	if debug {
		cfg.Level = slog.LevelDebug
	}

	return New(file, cfg), file.Close, nil
}
