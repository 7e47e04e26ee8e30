package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/event"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/observability"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

// ErrStopped is returned by Flush after Stop.
var ErrStopped = errors.New("saver stopped")

// Backend stores a flow document. *remote.Client implements it.
type Backend interface {
	Save(ctx context.Context, graphID string, req wire.SaveRequest) error
}

// Status is the state of the save pipeline.
type Status string

// Save statuses, in the order a save goes through them.
const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSaving  Status = "saving"
	StatusSaved   Status = "saved"
	StatusFailed  Status = "failed"
)

// Result describes a status transition.
type Result struct {
	Status Status

	// Seq is the store sequence number the save covers.
	Seq uint64

	Nodes int
	Edges int

	// Err is set for StatusFailed.
	Err error

	At       time.Time
	Duration time.Duration
}

// Saver debounces significant store changes into remote saves.
// It is safe for concurrent use.
type Saver struct {
	store   *flowcanvas.Store
	backend Backend
	cache   cache.Store
	graphID string
	delay   time.Duration
	name    func() string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	now     func() time.Time

	mu        sync.Mutex
	ctx       context.Context
	sub       event.Subscription
	timer     *time.Timer
	gen       uint64
	stopped   bool
	last      Result
	listeners []func(Result)
	inflight  sync.WaitGroup

	// saveMu serialises saves so responses arrive in request order.
	saveMu    sync.Mutex
	savedSeq  uint64
	saved     bool
	lastSaved Result
}

// New creates a Saver for store that sends saves to backend.
func New(store *flowcanvas.Store, backend Backend, opts ...Option) *Saver {
	s := &Saver{
		store:   store,
		backend: backend,
		graphID: store.GraphID(),
		delay:   DefaultDelay,
		name:    func() string { return DefaultName },
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		now:     time.Now,
		ctx:     context.Background(),
		last:    Result{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = observability.EnrichLogger(s.logger, s.graphID)
	return s
}

// OnStatus registers fn for status transitions. fn runs on the goroutine
// driving the save and must not block.
func (s *Saver) OnStatus(fn func(Result)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Status returns the latest status transition.
func (s *Saver) Status() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Start subscribes to the store. Values carried by ctx reach the backend;
// its cancellation stops nothing that has already started. Calling Start
// twice is a no-op.
func (s *Saver) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil || s.stopped {
		return
	}
	s.ctx = context.WithoutCancel(ctx)
	s.sub = s.store.OnChange(func(_ context.Context, c flowcanvas.Change) {
		if c.Significant {
			s.Schedule()
		}
	})
}

// Schedule (re)starts the debounce timer.
func (s *Saver) Schedule() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
	r := Result{Status: StatusPending, Seq: s.store.Seq(), At: s.now()}
	s.mu.Unlock()

	s.notify(r)
}

// Pending reports whether a debounced save is waiting to fire.
func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Flush cancels the debounce timer and saves the current graph now,
// whether or not it changed since the last save.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	return s.save(context.WithoutCancel(ctx), true)
}

// Stop unsubscribes, drops a pending save and waits for a running one.
func (s *Saver) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	s.inflight.Wait()
}

func (s *Saver) fire(gen uint64) {
	s.mu.Lock()
	// a newer Schedule or a Flush superseded this timer
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	ctx := s.ctx
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	_ = s.save(ctx, false)
}

// save sends the current graph. Unless force is set, a graph already
// saved at the current sequence number is not sent again.
func (s *Saver) save(ctx context.Context, force bool) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	seq := s.store.Seq()
	if !force && s.saved && seq == s.savedSeq {
		s.notify(s.lastSaved)
		return nil
	}
	st := s.store.State()
	req := wire.SaveRequest{
		Name:  s.name(),
		Nodes: wire.AdaptNodes(st.Nodes),
		Edges: wire.AdaptEdges(st.Edges, wire.NodeIDMap(st.Nodes)),
	}

	s.notify(Result{Status: StatusSaving, Seq: seq, Nodes: len(req.Nodes), Edges: len(req.Edges), At: s.now()})

	start := time.Now()
	elapsedMs := observability.TimedOperation()
	ctx, span := s.spans.StartSaveSpan(ctx, s.graphID, len(req.Nodes), len(req.Edges))
	err := s.backend.Save(ctx, s.graphID, req)
	s.spans.EndSpanWithError(span, err)
	elapsed := time.Since(start)
	s.metrics.RecordSave(ctx, err == nil, elapsed)

	r := Result{Seq: seq, Nodes: len(req.Nodes), Edges: len(req.Edges), At: s.now(), Duration: elapsed}
	if err != nil {
		observability.LogSaveError(s.logger, s.graphID, err)
		r.Status, r.Err = StatusFailed, err
		s.notify(r)
		return err
	}

	observability.LogSaveComplete(s.logger, s.graphID, r.Nodes, r.Edges, elapsedMs())
	s.savedSeq, s.saved = seq, true
	s.writeCache(ctx, st)
	s.store.RequestResync("")

	r.Status = StatusSaved
	s.lastSaved = r
	s.notify(r)
	return nil
}

// writeCache records the saved graph as the last known good copy. An
// empty graph is not written over a good one.
func (s *Saver) writeCache(ctx context.Context, st flowcanvas.State) {
	if s.cache == nil || len(st.Nodes) == 0 {
		return
	}
	n, err := cache.SaveNodes(s.cache, s.graphID, st.Nodes)
	s.metrics.RecordCacheWrite(ctx, cache.SlotNodes, int64(n), err)
	if err != nil {
		observability.LogCacheWriteError(s.logger, s.graphID, cache.SlotNodes, err)
	}
	n, err = cache.SaveEdges(s.cache, s.graphID, st.Edges)
	s.metrics.RecordCacheWrite(ctx, cache.SlotEdges, int64(n), err)
	if err != nil {
		observability.LogCacheWriteError(s.logger, s.graphID, cache.SlotEdges, err)
	}
}

func (s *Saver) notify(r Result) {
	s.mu.Lock()
	s.last = r
	listeners := append([]func(Result){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(r)
	}
}
