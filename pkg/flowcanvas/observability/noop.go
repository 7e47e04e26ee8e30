package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordReconcile does nothing.
func (NoopMetrics) RecordReconcile(context.Context, int, int, time.Duration) {}

// RecordLoad does nothing.
func (NoopMetrics) RecordLoad(context.Context, string, bool, time.Duration) {}

// RecordSave does nothing.
func (NoopMetrics) RecordSave(context.Context, bool, time.Duration) {}

// RecordGuardRefusal does nothing.
func (NoopMetrics) RecordGuardRefusal(context.Context, string) {}

// RecordCacheWrite does nothing.
func (NoopMetrics) RecordCacheWrite(context.Context, string, int64, error) {}

// RecordAnomaly does nothing.
func (NoopMetrics) RecordAnomaly(context.Context, string) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartLoadSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartLoadSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartSaveSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartSaveSpan(ctx context.Context, _ string, _, _ int) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
