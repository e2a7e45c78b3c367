package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricDeliveries      = "eventscript.bus.deliveries"
	MetricDeliveryLatency = "eventscript.bus.delivery_latency_ms"
	MetricHandlerErrors   = "eventscript.bus.handler_errors"
	MetricListeners       = "eventscript.listeners.active"
	MetricScriptLoads     = "eventscript.scripts.loads"
	MetricTypesDiscovered = "eventscript.taxonomy.types"
)

// MetricsRecorder records host metrics.
// Use NewMetricsRecorder for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDelivery records one event passing through the bus.
	RecordDelivery(ctx context.Context, event string, handlers int, duration time.Duration)

	// RecordHandlerError records a failing or panicking handler.
	RecordHandlerError(ctx context.Context, event string, panicked bool)

	// RecordListener records a listener being bound (+1) or unbound (-1).
	RecordListener(ctx context.Context, event, kind string, delta int64)

	// RecordScriptLoad records a script load attempt.
	RecordScriptLoad(ctx context.Context, script string, err error)

	// RecordTypesDiscovered records event types added by a module scan.
	RecordTypesDiscovered(ctx context.Context, module string, count int)
}

type otelMetrics struct {
	deliveries      metric.Int64Counter
	deliveryLatency metric.Float64Histogram
	handlerErrors   metric.Int64Counter
	listeners       metric.Int64UpDownCounter
	scriptLoads     metric.Int64Counter
	typesDiscovered metric.Int64Counter
}

func newOtelMetrics(provider metric.MeterProvider) (*otelMetrics, error) {
	meter := provider.Meter("eventscript")

	deliveries, err := meter.Int64Counter(MetricDeliveries,
		metric.WithDescription("Number of events delivered through the bus"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram(MetricDeliveryLatency,
		metric.WithDescription("Time spent delivering one event to all handlers"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter(MetricHandlerErrors,
		metric.WithDescription("Number of handler failures during delivery"),
	)
	if err != nil {
		return nil, err
	}

	listeners, err := meter.Int64UpDownCounter(MetricListeners,
		metric.WithDescription("Number of script listeners bound to the bus"),
	)
	if err != nil {
		return nil, err
	}

	scriptLoads, err := meter.Int64Counter(MetricScriptLoads,
		metric.WithDescription("Number of script load attempts"),
	)
	if err != nil {
		return nil, err
	}

	typesDiscovered, err := meter.Int64Counter(MetricTypesDiscovered,
		metric.WithDescription("Number of event types added to the taxonomy"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		deliveries:      deliveries,
		deliveryLatency: deliveryLatency,
		handlerErrors:   handlerErrors,
		listeners:       listeners,
		scriptLoads:     scriptLoads,
		typesDiscovered: typesDiscovered,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by provider, or by the
// global OTel meter provider when provider is nil. If instrument creation
// fails a no-op recorder is returned.
func NewMetricsRecorder(provider metric.MeterProvider) MetricsRecorder {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	m, err := newOtelMetrics(provider)
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordDelivery(ctx context.Context, event string, handlers int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("event", event))
	m.deliveries.Add(ctx, 1, attrs)
	m.deliveryLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordHandlerError(ctx context.Context, event string, panicked bool) {
	m.handlerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.Bool("panicked", panicked),
	))
}

func (m *otelMetrics) RecordListener(ctx context.Context, event, kind string, delta int64) {
	m.listeners.Add(ctx, delta, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("kind", kind),
	))
}

func (m *otelMetrics) RecordScriptLoad(ctx context.Context, script string, err error) {
	m.scriptLoads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("script", script),
		attribute.Bool("success", err == nil),
	))
}

func (m *otelMetrics) RecordTypesDiscovered(ctx context.Context, module string, count int) {
	m.typesDiscovered.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("module", module),
	))
}
