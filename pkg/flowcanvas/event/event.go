package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable notification published on a Bus.
type Event interface {
	ID() string           // Unique event identifier
	Type() string         // Event type (e.g. "graph.changed")
	Source() string       // Component that emitted it
	GraphID() string      // Graph the event belongs to
	Timestamp() time.Time // When the event occurred
	Data() any            // Payload
}

// Metadata contains common event metadata fields.
type Metadata struct {
	EventID     string    `json:"id"`
	EventType   string    `json:"type"`
	EventSource string    `json:"source"`
	Graph       string    `json:"graph_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// BaseEvent is the generic Event implementation.
// T is the payload type for type-safe access through TypedData.
type BaseEvent[T any] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`
}

// ID returns the unique event identifier.
func (e *BaseEvent[T]) ID() string { return e.Meta.EventID }

// Type returns the event type.
func (e *BaseEvent[T]) Type() string { return e.Meta.EventType }

// Source returns the event source.
func (e *BaseEvent[T]) Source() string { return e.Meta.EventSource }

// GraphID returns the graph the event belongs to.
func (e *BaseEvent[T]) GraphID() string { return e.Meta.Graph }

// Timestamp returns when the event occurred.
func (e *BaseEvent[T]) Timestamp() time.Time { return e.Meta.Timestamp }

// Data returns the event payload.
func (e *BaseEvent[T]) Data() any { return e.Payload }

// TypedData returns the strongly-typed payload.
func (e *BaseEvent[T]) TypedData() T { return e.Payload }

// Option configures event creation.
type Option func(*Metadata)

// WithEventID sets a specific event ID (default: random UUID).
func WithEventID(id string) Option {
	return func(m *Metadata) {
		m.EventID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(m *Metadata) {
		m.Timestamp = t
	}
}

// New creates an event with the given type, source, graph and payload.
func New[T any](eventType, source, graphID string, payload T, opts ...Option) *BaseEvent[T] {
	meta := Metadata{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		EventSource: source,
		Graph:       graphID,
		Timestamp:   time.Now(),
	}
	for _, opt := range opts {
		opt(&meta)
	}
	return &BaseEvent[T]{Meta: meta, Payload: payload}
}

// Payload extracts a typed payload from evt.
func Payload[T any](evt Event) (T, bool) {
	v, ok := evt.Data().(T)
	return v, ok
}

// Handler processes events delivered by a Bus.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
