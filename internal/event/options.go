package event

import (
	"log/slog"
	"time"

	"github.com/dshills/eventscript/internal/observability"
)

// BusOption configures an event Bus.
type BusOption func(*busConfig)

type busConfig struct {
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	handlerTimeout time.Duration
}

func defaultBusConfig() busConfig {
	return busConfig{
		metrics: observability.NoopMetrics{},
	}
}

// WithLogger sets the logger used to report handler failures.
func WithLogger(logger *slog.Logger) BusOption {
	return func(c *busConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) BusOption {
	return func(c *busConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithHandlerTimeout bounds each handler execution. Zero disables it.
func WithHandlerTimeout(timeout time.Duration) BusOption {
	return func(c *busConfig) {
		c.handlerTimeout = timeout
	}
}
