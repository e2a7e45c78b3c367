package observability

import (
	"context"
	"time"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordDelivery does nothing.
func (NoopMetrics) RecordDelivery(context.Context, string, int, time.Duration) {}

// RecordHandlerError does nothing.
func (NoopMetrics) RecordHandlerError(context.Context, string, bool) {}

// RecordListener does nothing.
func (NoopMetrics) RecordListener(context.Context, string, string, int64) {}

// RecordScriptLoad does nothing.
func (NoopMetrics) RecordScriptLoad(context.Context, string, error) {}

// RecordTypesDiscovered does nothing.
func (NoopMetrics) RecordTypesDiscovered(context.Context, string, int) {}
