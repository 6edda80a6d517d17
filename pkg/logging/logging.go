// Package logging provides structured logging configuration using log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Service is attached to every entry written through Setup.
const Service = "smsledger"

// Config holds logging configuration options.
type Config struct {
	// Level is the minimum log level to output.
	Level slog.Level
	// JSON switches the handler from logfmt text to JSON lines.
	JSON bool
	// Source adds the calling file and line to each entry.
	Source bool
	// Output is the writer to write logs to. Defaults to os.Stderr.
	Output io.Writer
}

// FromEnv returns a configuration read from the environment.
// LOG_LEVEL accepts DEBUG, INFO, WARN, ERROR (default INFO).
// LOG_FORMAT accepts text or json (default text).
// LOG_SOURCE=true adds source locations.
func FromEnv() Config {
	return Config{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		JSON:   strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json"),
		Source: isTrue(os.Getenv("LOG_SOURCE")),
		Output: os.Stderr,
	}
}

// ParseLevel converts a level name to slog.Level. Unknown names map to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Setup builds the process logger, tags it with the service name and installs
// it as the slog default.
func Setup(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.Source}

	var handler slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler).With("service", Service)
	slog.SetDefault(logger)
	return logger
}
