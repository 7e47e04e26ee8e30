package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records editor metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordReconcile records one reconciliation pass.
	RecordReconcile(ctx context.Context, resolved, dropped int, duration time.Duration)

	// RecordLoad records a graph load and where the nodes came from.
	RecordLoad(ctx context.Context, source string, success bool, duration time.Duration)

	// RecordSave records a remote save.
	RecordSave(ctx context.Context, success bool, duration time.Duration)

	// RecordGuardRefusal records a refused destructive replacement.
	RecordGuardRefusal(ctx context.Context, graphID string)

	// RecordCacheWrite records a durable cache write.
	RecordCacheWrite(ctx context.Context, slot string, sizeBytes int64, err error)

	// RecordAnomaly records a consistency sweep finding.
	RecordAnomaly(ctx context.Context, graphID string)
}

type otelMetrics struct {
	edgesResolved   metric.Int64Counter
	edgesDropped    metric.Int64Counter
	reconcileTime   metric.Float64Histogram
	loads           metric.Int64Counter
	loadLatency     metric.Float64Histogram
	saves           metric.Int64Counter
	saveLatency     metric.Float64Histogram
	guardRefusals   metric.Int64Counter
	cacheWriteSize  metric.Int64Histogram
	cacheWriteFails metric.Int64Counter
	anomalies       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("flowcanvas")
	m := &otelMetrics{}
	var err error

	if m.edgesResolved, err = meter.Int64Counter("flowcanvas.reconcile.edges_resolved",
		metric.WithDescription("Edges whose endpoints were resolved"),
	); err != nil {
		return nil, err
	}
	if m.edgesDropped, err = meter.Int64Counter("flowcanvas.reconcile.edges_dropped",
		metric.WithDescription("Edges dropped during reconciliation"),
	); err != nil {
		return nil, err
	}
	if m.reconcileTime, err = meter.Float64Histogram("flowcanvas.reconcile.latency_ms",
		metric.WithDescription("Reconciliation latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.loads, err = meter.Int64Counter("flowcanvas.graph.loads",
		metric.WithDescription("Number of graph loads"),
	); err != nil {
		return nil, err
	}
	if m.loadLatency, err = meter.Float64Histogram("flowcanvas.graph.load_latency_ms",
		metric.WithDescription("Graph load latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.saves, err = meter.Int64Counter("flowcanvas.graph.saves",
		metric.WithDescription("Number of remote saves"),
	); err != nil {
		return nil, err
	}
	if m.saveLatency, err = meter.Float64Histogram("flowcanvas.graph.save_latency_ms",
		metric.WithDescription("Remote save latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.guardRefusals, err = meter.Int64Counter("flowcanvas.guard.refusals",
		metric.WithDescription("Refused destructive node replacements"),
	); err != nil {
		return nil, err
	}
	if m.cacheWriteSize, err = meter.Int64Histogram("flowcanvas.cache.write_bytes",
		metric.WithDescription("Durable cache write size in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if m.cacheWriteFails, err = meter.Int64Counter("flowcanvas.cache.write_errors",
		metric.WithDescription("Failed durable cache writes"),
	); err != nil {
		return nil, err
	}
	if m.anomalies, err = meter.Int64Counter("flowcanvas.guard.anomalies",
		metric.WithDescription("Consistency sweep findings"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordReconcile(ctx context.Context, resolved, dropped int, duration time.Duration) {
	m.edgesResolved.Add(ctx, int64(resolved))
	m.edgesDropped.Add(ctx, int64(dropped))
	m.reconcileTime.Record(ctx, float64(duration.Microseconds())/1000)
}

func (m *otelMetrics) RecordLoad(ctx context.Context, source string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("success", success),
	)
	m.loads.Add(ctx, 1, attrs)
	m.loadLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordSave(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.saves.Add(ctx, 1, attrs)
	m.saveLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordGuardRefusal(ctx context.Context, graphID string) {
	m.guardRefusals.Add(ctx, 1, metric.WithAttributes(attribute.String("graph_id", graphID)))
}

func (m *otelMetrics) RecordCacheWrite(ctx context.Context, slot string, sizeBytes int64, err error) {
	attrs := metric.WithAttributes(attribute.String("slot", slot))
	if err != nil {
		m.cacheWriteFails.Add(ctx, 1, attrs)
		return
	}
	m.cacheWriteSize.Record(ctx, sizeBytes, attrs)
}

func (m *otelMetrics) RecordAnomaly(ctx context.Context, graphID string) {
	m.anomalies.Add(ctx, 1, metric.WithAttributes(attribute.String("graph_id", graphID)))
}
