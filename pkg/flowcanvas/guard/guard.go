package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	fcerrors "github.com/randalmurphal/flowcanvas/pkg/flowcanvas/errors"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/event"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/observability"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/reconcile"
)

// Sentinel errors for guarded operations.
var (
	// ErrRefused indicates a replacement that would have removed every node.
	ErrRefused = errors.New("replacement would remove every node")

	// ErrNoBackup indicates RecoverEmergency found nothing to restore.
	ErrNoBackup = errors.New("no backup to recover from")
)

// Token authorizes one destructive replacement.
type Token string

// Source names where a recovery came from.
type Source string

// Recovery sources.
const (
	SourceNone   Source = ""
	SourceMemory Source = "memory"
	SourceCache  Source = "cache"
)

// Recovery reports the outcome of RecoverEmergency.
type Recovery struct {
	Source Source
	Nodes  int
	Edges  int
	// Dropped counts cached edges that could not be placed again.
	Dropped int
}

// Anomaly is reported when a graph that had nodes at the previous sweep
// is empty now and the cache holds no nodes for it.
type Anomaly struct {
	GraphID       string
	PreviousNodes int
	DetectedAt    time.Time
}

// Guard wraps a Store's node replacement with backup and refusal.
// It is safe for concurrent use.
type Guard struct {
	store      *flowcanvas.Store
	cache      cache.Store
	graphID    string
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	reconciler *reconcile.Reconciler
	interval   time.Duration
	now        func() time.Time

	mu        sync.Mutex
	tokens    map[Token]struct{}
	last      *flowcanvas.Snapshot
	lastSeq   uint64
	prevCount int
	primed    bool
	handlers  []func(Anomaly)

	sub event.Subscription

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Guard for store backed by c. The graph id comes from the
// store.
func New(store *flowcanvas.Store, c cache.Store, opts ...Option) *Guard {
	g := &Guard{
		store:    store,
		cache:    c,
		graphID:  store.GraphID(),
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		interval: DefaultSweepInterval,
		now:      time.Now,
		tokens:   make(map[Token]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = observability.EnrichLogger(g.logger, g.graphID)
	if g.reconciler == nil {
		g.reconciler = reconcile.New(reconcile.WithLogger(g.logger), reconcile.WithMetrics(g.metrics))
	}

	g.rememberCurrent()
	g.sub = store.OnChange(func(_ context.Context, c flowcanvas.Change) {
		if len(c.State.Nodes) > 0 {
			g.remember(c.State, c.Seq)
		}
	})
	return g
}

// Authorize issues a one-shot token for an intentional destructive
// replacement.
func (g *Guard) Authorize() Token {
	t := Token(uuid.New().String())
	g.mu.Lock()
	g.tokens[t] = struct{}{}
	g.mu.Unlock()
	return t
}

// ReplaceNodes replaces the store's nodes. Taking a non-empty graph to
// zero nodes requires a token from Authorize; without one the current
// graph is written to the cache and a Destructive error is returned with
// the store unchanged. The check runs on the node set as the store would
// keep it, so a batch made only of invalid nodes counts as empty.
func (g *Guard) ReplaceNodes(nodes []flowcanvas.Node, opts ...ReplaceOption) error {
	var cfg replaceConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	authorized := cfg.token != "" && g.spend(cfg.token)

	refused := false
	out := g.store.ReplaceNodesIf(nodes, func(cur flowcanvas.State, next []flowcanvas.Node) bool {
		refused = len(cur.Nodes) > 0 && len(next) == 0 && !authorized
		return !refused
	})
	if len(out.Before.Nodes) > 0 {
		g.remember(out.Before, out.Seq)
	}
	if !refused {
		return nil
	}

	g.writeBackup(out.Before)
	observability.LogGuardRefusal(g.logger, g.graphID, len(out.Before.Nodes))
	g.metrics.RecordGuardRefusal(context.Background(), g.graphID)
	return fcerrors.Destructive(ErrRefused, fmt.Sprintf("graph %s has %d nodes", g.graphID, len(out.Before.Nodes)))
}

// Clear intentionally empties the graph. The in-memory snapshot and the
// cached slots are dropped so nothing restores the cleared graph, and the
// next sweep does not report it.
func (g *Guard) Clear() error {
	if err := g.ReplaceNodes(nil, WithToken(g.Authorize())); err != nil {
		return err
	}

	// notifications still in flight describe the graph before the clear
	g.mu.Lock()
	g.last = nil
	g.lastSeq = g.store.Seq() + 1
	g.prevCount = 0
	g.mu.Unlock()

	if err := g.cache.DeleteGraph(g.graphID); err != nil {
		observability.LogCacheWriteError(g.logger, g.graphID, "*", err)
		return fcerrors.Persistence(err, "clear cached graph")
	}
	return nil
}

// Backup snapshots the current graph to memory and to the cache. An empty
// graph is not written, so a backup never overwrites good data with
// nothing.
func (g *Guard) Backup(reason string) error {
	cur := g.rememberCurrent()
	if len(cur.Nodes) == 0 {
		g.logger.Debug("backup skipped on empty graph", slog.String("reason", reason))
		return nil
	}
	observability.LogBackup(g.logger, g.graphID, reason, len(cur.Nodes))
	if err := g.writeBackup(cur); err != nil {
		return fcerrors.Persistence(err, "backup "+reason)
	}
	return nil
}

// RecoverEmergency restores the graph when the store is empty: from the
// in-memory snapshot if there is one, else from the cache. A non-empty
// store is left alone and SourceNone is returned.
func (g *Guard) RecoverEmergency() (Recovery, error) {
	if g.store.NodeCount() > 0 {
		return Recovery{}, nil
	}

	if snap, ok := g.LastSnapshot(); ok {
		g.store.Restore(snap.State)
		rec := Recovery{Source: SourceMemory, Nodes: g.store.NodeCount(), Edges: g.store.EdgeCount()}
		observability.LogRecovery(g.logger, g.graphID, string(rec.Source), rec.Nodes)
		return rec, nil
	}

	nodes, _, err := cache.LoadNodes(g.cache, g.graphID)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return Recovery{}, ErrNoBackup
	case err != nil:
		return Recovery{}, fcerrors.Persistence(err, "read cached nodes")
	case len(nodes) == 0:
		return Recovery{}, ErrNoBackup
	}

	var edges []flowcanvas.Edge
	dropped := 0
	raw, _, err := cache.LoadEdges(g.cache, g.graphID)
	switch {
	case err == nil:
		res := g.reconciler.Reconcile(raw, nodes)
		edges, dropped = res.Edges, len(res.Drops)
	case !errors.Is(err, cache.ErrNotFound):
		g.logger.Warn("cached edges unreadable, recovering nodes only", slog.String("error", err.Error()))
	}

	g.store.Restore(flowcanvas.State{Nodes: nodes, Edges: edges})
	rec := Recovery{Source: SourceCache, Nodes: g.store.NodeCount(), Edges: g.store.EdgeCount(), Dropped: dropped}
	observability.LogRecovery(g.logger, g.graphID, string(rec.Source), rec.Nodes)
	return rec, nil
}

// LastSnapshot returns the most recent non-empty graph seen by the guard.
func (g *Guard) LastSnapshot() (flowcanvas.Snapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == nil {
		return flowcanvas.Snapshot{}, false
	}
	return flowcanvas.Snapshot{State: g.last.State.Clone(), Timestamp: g.last.Timestamp}, true
}

// OnAnomaly registers fn for anomalies found by the sweep. fn runs on the
// sweeping goroutine.
func (g *Guard) OnAnomaly(fn func(Anomaly)) {
	g.mu.Lock()
	g.handlers = append(g.handlers, fn)
	g.mu.Unlock()
}

// Sweep runs one consistency pass. It returns the anomaly found, if any.
// The first pass only records the node count.
func (g *Guard) Sweep() *Anomaly {
	count := g.store.NodeCount()

	g.mu.Lock()
	prev, primed := g.prevCount, g.primed
	g.prevCount, g.primed = count, true
	handlers := append([]func(Anomaly){}, g.handlers...)
	g.mu.Unlock()

	if !primed || prev == 0 || count > 0 {
		return nil
	}

	has, err := cache.HasNodes(g.cache, g.graphID)
	if err != nil {
		g.logger.Warn("sweep could not read cache", slog.String("error", err.Error()))
	}
	if has {
		return nil
	}

	a := Anomaly{GraphID: g.graphID, PreviousNodes: prev, DetectedAt: g.now()}
	observability.LogAnomaly(g.logger, g.graphID, prev)
	g.metrics.RecordAnomaly(context.Background(), g.graphID)
	for _, fn := range handlers {
		fn(a)
	}
	return &a
}

// Start runs Sweep every sweep interval until ctx is done or Stop is
// called. Calling Start on a running guard is a no-op.
func (g *Guard) Start(ctx context.Context) {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	if g.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Sweep()
			}
		}
	}(g.done)
}

// Stop halts the sweep started by Start and waits for it to exit.
func (g *Guard) Stop() {
	g.runMu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Close stops the sweep and detaches from the store.
func (g *Guard) Close() error {
	g.Stop()
	if g.sub != nil {
		g.sub.Unsubscribe()
	}
	return nil
}

func (g *Guard) spend(t Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.tokens[t]
	delete(g.tokens, t)
	return ok
}

// rememberCurrent reads the store and remembers it when non-empty.
func (g *Guard) rememberCurrent() flowcanvas.State {
	seq := g.store.Seq()
	cur := g.store.State()
	if len(cur.Nodes) > 0 {
		g.remember(cur, seq)
	}
	return cur
}

// remember keeps st unless a newer commit was already remembered.
func (g *Guard) remember(st flowcanvas.State, seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq < g.lastSeq {
		return
	}
	g.last = &flowcanvas.Snapshot{State: st, Timestamp: g.now()}
	g.lastSeq = seq
}

// writeBackup writes nodes then edges to the cache. Failures are logged
// and counted; the returned error is for callers that want to report it.
func (g *Guard) writeBackup(st flowcanvas.State) error {
	ctx := context.Background()

	n, nodesErr := cache.SaveNodes(g.cache, g.graphID, st.Nodes)
	g.metrics.RecordCacheWrite(ctx, cache.SlotNodes, int64(n), nodesErr)
	if nodesErr != nil {
		observability.LogCacheWriteError(g.logger, g.graphID, cache.SlotNodes, nodesErr)
	}

	n, edgesErr := cache.SaveEdges(g.cache, g.graphID, st.Edges)
	g.metrics.RecordCacheWrite(ctx, cache.SlotEdges, int64(n), edgesErr)
	if edgesErr != nil {
		observability.LogCacheWriteError(g.logger, g.graphID, cache.SlotEdges, edgesErr)
	}

	return errors.Join(nodesErr, edgesErr)
}
