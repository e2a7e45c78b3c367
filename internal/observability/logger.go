// Package observability provides structured logging and metrics for the
// event scripting host.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//
// Metrics are opt-in; NoopMetrics is used when they are disabled.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger attribute keys shared across packages.
const (
	KeyComponent = "component"
	KeyScript    = "script"
	KeyEvent     = "event"
	KeyModule    = "module"
)

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is "text" or "json".
	Format string

	// AddSource includes the caller position.
	AddSource bool
}

// NewLogger builds a slog logger writing to w.
func NewLogger(w io.Writer, opts LoggerOptions) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	hopts := &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, hopts)
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return slog.New(h), nil
}

// ParseLevel converts a level name. An empty name means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Component returns logger enriched with a component attribute, falling back
// to slog.Default when logger is nil.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String(KeyComponent, name))
}

// ScriptLogger returns the logger handed to a script session.
func ScriptLogger(logger *slog.Logger, script string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String(KeyScript, script))
}
