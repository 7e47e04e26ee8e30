package event

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Bus fans events out to subscribers.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(types []string, handler Handler) Subscription
	SubscribeAll(handler Handler) Subscription
	Close() error
}

// Subscription is a registered handler. Unsubscribe stops delivery and may
// be called more than once.
type Subscription interface {
	Unsubscribe()
}

// BusConfig configures a LocalBus.
type BusConfig struct {
	// BufferSize is the queue length of each subscriber.
	// Default: 256
	BufferSize int

	// NonBlocking drops an event for a subscriber whose queue is full
	// instead of waiting.
	NonBlocking bool

	// OnDrop receives events dropped in non-blocking mode.
	OnDrop func(evt Event, subscriberID string)

	// OnError receives handler errors.
	OnError func(evt Event, subscriberID string, err error)
}

// DefaultBusConfig is the configuration used by the graph store.
var DefaultBusConfig = BusConfig{BufferSize: 256}

// LocalBus is an in-process Bus. Each subscriber has its own queue and
// goroutine, so a slow handler only delays its own events.
type LocalBus struct {
	cfg BusConfig

	mu     sync.Mutex
	subs   []*subscriber
	serial int
	closed bool
	quit   chan struct{}
}

// NewBus returns an open LocalBus.
func NewBus(cfg BusConfig) *LocalBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBusConfig.BufferSize
	}
	return &LocalBus{cfg: cfg, quit: make(chan struct{})}
}

// Publish queues evt for every subscriber interested in its type. In
// blocking mode it waits for queue space, ctx cancellation or Close.
func (b *LocalBus) Publish(ctx context.Context, evt Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return &PublishError{Event: evt, Err: ErrBusClosed}
	}
	// subs is replaced, never mutated in place, so the snapshot stays valid
	targets := b.subs
	b.mu.Unlock()

	for _, s := range targets {
		if !s.wants(evt.Type()) {
			continue
		}
		if err := b.enqueue(ctx, s, evt); err != nil {
			return err
		}
	}
	return nil
}

func (b *LocalBus) enqueue(ctx context.Context, s *subscriber, evt Event) error {
	if b.cfg.NonBlocking {
		select {
		case s.queue <- evt:
		case <-s.gone:
		default:
			if b.cfg.OnDrop != nil {
				b.cfg.OnDrop(evt, s.id)
			}
		}
		return nil
	}
	select {
	case s.queue <- evt:
		return nil
	case <-s.gone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.quit:
		return &PublishError{Event: evt, Err: ErrBusClosed}
	}
}

// Subscribe registers handler for the listed event types; no types means
// every type. It returns nil once the bus is closed.
func (b *LocalBus) Subscribe(types []string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}

	b.serial++
	s := &subscriber{
		id:      fmt.Sprintf("listener-%d", b.serial),
		handler: handler,
		queue:   make(chan Event, b.cfg.BufferSize),
		gone:    make(chan struct{}),
		bus:     b,
	}
	if len(types) > 0 {
		s.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
	b.subs = append(slices.Clip(b.subs), s)
	go s.run(b.cfg.OnError)
	return s
}

// SubscribeAll registers handler for every event type.
func (b *LocalBus) SubscribeAll(handler Handler) Subscription {
	return b.Subscribe(nil, handler)
}

// Len returns the number of live subscribers.
func (b *LocalBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops every subscriber. Queued events that were not handled yet
// are discarded. Close is idempotent.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	close(b.quit)
	b.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
	return nil
}

func (b *LocalBus) remove(target *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = slices.DeleteFunc(slices.Clone(b.subs), func(s *subscriber) bool { return s == target })
}

type subscriber struct {
	id      string
	types   map[string]struct{} // nil matches everything
	handler Handler
	queue   chan Event
	gone    chan struct{}
	once    sync.Once
	bus     *LocalBus
}

func (s *subscriber) wants(eventType string) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

func (s *subscriber) run(onError func(Event, string, error)) {
	for {
		select {
		case <-s.gone:
			return
		case evt := <-s.queue:
			err := s.handler.Handle(context.Background(), evt)
			if err != nil && onError != nil {
				onError(evt, s.id, err)
			}
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.gone) })
}

// Unsubscribe detaches the handler. An event already being handled runs
// to completion.
func (s *subscriber) Unsubscribe() {
	s.bus.remove(s)
	s.stop()
}
