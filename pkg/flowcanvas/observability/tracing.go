package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrGraphID    = attribute.Key("graph.id")
	AttrNodes      = attribute.Key("graph.nodes")
	AttrEdges      = attribute.Key("graph.edges")
	AttrSource     = attribute.Key("load.source")
	AttrDropped    = attribute.Key("edges.dropped")
	AttrUnresolved = attribute.Key("edges.unresolved")
)

var tracer = otel.Tracer("flowcanvas")

// SpanManager traces persistence round trips. NewSpanManager uses the
// global tracer provider; NoopSpanManager{} records nothing.
type SpanManager interface {
	// StartLoadSpan covers a whole load, fallbacks included.
	StartLoadSpan(ctx context.Context, graphID string) (context.Context, trace.Span)

	// StartSaveSpan covers one remote save.
	StartSaveSpan(ctx context.Context, graphID string, nodes, edges int) (context.Context, trace.Span)

	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent annotates the span carried by ctx, if it is recording.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns an OpenTelemetry SpanManager.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func startClientSpan(ctx context.Context, op, graphID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{AttrGraphID.String(graphID)}, attrs...)
	return tracer.Start(ctx, "flowcanvas."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func (otelSpanManager) StartLoadSpan(ctx context.Context, graphID string) (context.Context, trace.Span) {
	return startClientSpan(ctx, "load", graphID)
}

func (otelSpanManager) StartSaveSpan(ctx context.Context, graphID string, nodes, edges int) (context.Context, trace.Span) {
	return startClientSpan(ctx, "save", graphID, AttrNodes.Int(nodes), AttrEdges.Int(edges))
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError sets the span status from err and ends it. A nil span
// is ignored.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds an event to the recording span in ctx.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
