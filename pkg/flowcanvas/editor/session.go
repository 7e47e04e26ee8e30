package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/autosave"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/catalog"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/dragdrop"
	fcerrors "github.com/randalmurphal/flowcanvas/pkg/flowcanvas/errors"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/guard"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/minimap"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/observability"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/reconcile"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

// Sentinel errors for session operations.
var (
	// ErrOffline is returned by Save when the session has no remote.
	ErrOffline = errors.New("no remote configured")

	// ErrNoGraphID is returned by New for an empty graph id.
	ErrNoGraphID = errors.New("graph id is required")
)

// Remote is the persistence API. *remote.Client implements it.
type Remote interface {
	Load(ctx context.Context, graphID string) (wire.FlowDocument, error)
	autosave.Backend
}

// Source names where a load found its nodes.
type Source string

// Load sources, in the order they are tried.
const (
	SourceRemote  Source = "remote"
	SourceCache   Source = "cache"
	SourceStarter Source = "starter"
)

// StarterPosition is where the start node of a starter graph is placed.
var StarterPosition = flowcanvas.Position{X: 250, Y: 5}

// LoadResult reports what Load put in the store.
type LoadResult struct {
	Source Source
	Nodes  int
	Edges  int

	// DroppedNodes counts stored nodes without an id, with an unknown
	// type or with a repeated id.
	DroppedNodes int

	// DroppedEdges counts edges reconciliation left out, duplicates
	// included; Unresolved counts only those whose endpoints matched no
	// node.
	DroppedEdges int
	Unresolved   int

	// EdgesFromCache is set when the remote returned nodes without edges
	// and the cached edges were used instead.
	EdgesFromCache bool

	// RemoteErr is the remote failure a cache or starter load fell back
	// from.
	RemoteErr error
}

// Session is one open flow. It is safe for concurrent use.
type Session struct {
	graphID    string
	store      *flowcanvas.Store
	cache      cache.Store
	ownsCache  bool
	remote     Remote
	guard      *guard.Guard
	saver      *autosave.Saver
	ingestor   *dragdrop.Ingestor
	reconciler *reconcile.Reconciler
	catalog    *catalog.Catalog
	autosave   bool
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	now        func() time.Time

	mu        sync.Mutex
	name      string
	viewport  flowcanvas.Viewport
	messages  []Message
	listeners []func(Message)
	closed    bool
}

// New creates a session for graphID. The store starts empty; call Load.
func New(graphID string, opts ...Option) (*Session, error) {
	if graphID == "" {
		return nil, ErrNoGraphID
	}
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cache == nil {
		cfg.cache, cfg.ownsCache = cache.NewMemoryStore(), true
	}
	if cfg.catalog == nil {
		cfg.catalog = catalog.Default()
	}

	s := &Session{
		graphID:   graphID,
		cache:     cfg.cache,
		ownsCache: cfg.ownsCache,
		remote:    cfg.remote,
		catalog:   cfg.catalog,
		autosave:  cfg.autosave,
		logger:    observability.EnrichLogger(cfg.logger, graphID),
		metrics:   cfg.metrics,
		spans:     cfg.spans,
		now:       cfg.now,
		name:      cfg.flowName,
		viewport:  flowcanvas.DefaultViewport,
	}

	s.store = flowcanvas.NewStore(
		flowcanvas.WithGraphID(graphID),
		flowcanvas.WithLogger(cfg.logger),
		flowcanvas.WithHistoryLimit(cfg.historyLimit),
		flowcanvas.WithClock(cfg.now),
	)
	s.reconciler = reconcile.New(
		reconcile.WithLogger(s.logger),
		reconcile.WithMetrics(cfg.metrics),
		reconcile.WithStamp(cfg.now().UnixMilli()),
	)
	s.guard = guard.New(s.store, s.cache,
		guard.WithLogger(cfg.logger),
		guard.WithMetrics(cfg.metrics),
		guard.WithSweepInterval(cfg.sweepInterval),
		guard.WithReconciler(s.reconciler),
		guard.WithClock(cfg.now),
	)
	s.guard.OnAnomaly(func(a guard.Anomaly) {
		s.emit(LevelWarning, fmt.Sprintf("The flow lost all %d nodes unexpectedly. Use recover to restore the last backup.", a.PreviousNodes))
	})

	dropOpts := []dragdrop.Option{
		dragdrop.WithCatalog(cfg.catalog),
		dragdrop.WithLogger(cfg.logger),
		dragdrop.WithClock(cfg.now),
	}
	if cfg.decisionOptions {
		dropOpts = append(dropOpts, dragdrop.WithDecisionOptions())
	}
	s.ingestor = dragdrop.New(s.store, dropOpts...)

	if cfg.remote != nil {
		s.saver = autosave.New(s.store, cfg.remote,
			autosave.WithDelay(cfg.autosaveDelay),
			autosave.WithName(s.Name),
			autosave.WithCache(s.cache),
			autosave.WithLogger(cfg.logger),
			autosave.WithMetrics(cfg.metrics),
			autosave.WithSpans(cfg.spans),
			autosave.WithClock(cfg.now),
		)
		s.saver.OnStatus(s.reportSave)
	}
	return s, nil
}

// GraphID returns the id of the open flow.
func (s *Session) GraphID() string { return s.graphID }

// Store returns the session's graph store.
func (s *Session) Store() *flowcanvas.Store { return s.store }

// Guard returns the session's persistence guard.
func (s *Session) Guard() *guard.Guard { return s.guard }

// Saver returns the save pipeline, or nil without a remote.
func (s *Session) Saver() *autosave.Saver { return s.saver }

// Catalog returns the node kind catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// Name returns the flow name sent with saves.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetName renames the flow. The next save carries the new name.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Start runs the guard's consistency sweep and, when enabled, debounced
// saves, until Close.
func (s *Session) Start(ctx context.Context) {
	s.guard.Start(ctx)
	if s.saver != nil && s.autosave {
		s.saver.Start(ctx)
	}
}

// Load replaces the graph with the stored flow: the remote document, else
// the cached copy, else a starter graph. The current graph is backed up
// first. Only a cancelled ctx makes Load fail.
func (s *Session) Load(ctx context.Context) (LoadResult, error) {
	start := time.Now()
	elapsedMs := observability.TimedOperation()
	ctx, span := s.spans.StartLoadSpan(ctx, s.graphID)
	observability.LogLoadStart(s.logger, s.graphID)

	if err := s.guard.Backup("before load"); err != nil {
		s.logger.Warn("backup before load failed", slog.String("error", err.Error()))
	}

	res, err := s.load(ctx)
	s.spans.EndSpanWithError(span, err)
	s.metrics.RecordLoad(ctx, string(res.Source), err == nil, time.Since(start))
	if err != nil {
		observability.LogLoadError(s.logger, s.graphID, err)
		return res, err
	}

	observability.LogLoadComplete(s.logger, s.graphID, string(res.Source), res.Nodes, res.Edges, res.DroppedEdges,
		elapsedMs())
	return res, nil
}

func (s *Session) load(ctx context.Context) (LoadResult, error) {
	var res LoadResult

	nodes, raw, err := s.fetch(ctx, &res)
	if err != nil {
		return res, err
	}

	if res.Source == SourceRemote && len(raw) == 0 {
		cached, _, err := cache.LoadEdges(s.cache, s.graphID)
		if err == nil && len(cached) > 0 {
			raw, res.EdgesFromCache = cached, true
			s.logger.Info("remote returned no edges, using cached edges", slog.Int("edges", len(cached)))
		}
	}

	rec := s.reconciler.Reconcile(raw, nodes)
	s.store.Load(flowcanvas.State{Nodes: nodes, Edges: rec.Edges})
	s.store.RequestResync("")

	res.Nodes = s.store.NodeCount()
	res.Edges = s.store.EdgeCount()
	res.DroppedEdges = len(rec.Drops)
	res.Unresolved = rec.Unresolved()
	s.spans.AddSpanEvent(ctx, "reconciled",
		observability.AttrSource.String(string(res.Source)),
		observability.AttrNodes.Int(res.Nodes),
		observability.AttrEdges.Int(res.Edges),
		observability.AttrDropped.Int(res.DroppedEdges),
		observability.AttrUnresolved.Int(res.Unresolved),
	)
	if res.Unresolved > 0 {
		s.emit(LevelWarning, fmt.Sprintf("%d connections could not be restored", res.Unresolved))
	}
	return res, nil
}

// fetch finds the nodes and raw edges to load and records the source.
func (s *Session) fetch(ctx context.Context, res *LoadResult) ([]flowcanvas.Node, []wire.RawEdge, error) {
	if s.remote != nil {
		doc, err := s.remote.Load(ctx, s.graphID)
		switch {
		case err == nil:
			nodes, report := wire.DecodeNodes(doc.Nodes)
			res.DroppedNodes = report.Dropped()
			if doc.Name != "" {
				s.SetName(doc.Name)
			}
			if len(nodes) > 0 {
				res.Source = SourceRemote
				return nodes, doc.Edges, nil
			}
		case ctx.Err() != nil:
			return nil, nil, ctx.Err()
		case fcerrors.IsNotFound(err):
			s.logger.Debug("flow not found on remote")
		default:
			res.RemoteErr = err
			observability.LogLoadError(s.logger, s.graphID, err)
			s.emit(LevelWarning, loadFailureText(err))
		}
	}

	nodes, _, err := cache.LoadNodes(s.cache, s.graphID)
	switch {
	case err == nil && len(nodes) > 0:
		raw, _, err := cache.LoadEdges(s.cache, s.graphID)
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			s.logger.Warn("cached edges unreadable", slog.String("error", err.Error()))
		}
		res.Source = SourceCache
		return nodes, raw, nil
	case err != nil && !errors.Is(err, cache.ErrNotFound):
		s.logger.Warn("cached nodes unreadable", slog.String("error", err.Error()))
	}

	res.Source = SourceStarter
	return s.starter(), nil, nil
}

// starter is the graph a brand new flow opens with.
func (s *Session) starter() []flowcanvas.Node {
	label := flowcanvas.DefaultLabel(flowcanvas.NodeStart)
	if k, ok := s.catalog.Get(flowcanvas.NodeStart); ok {
		label = k.Label
	}
	return []flowcanvas.Node{{
		ID:       string(flowcanvas.NodeStart) + "-1",
		Type:     flowcanvas.NodeStart,
		Position: StarterPosition,
		Data:     map[string]any{flowcanvas.LabelKey: label},
	}}
}

func loadFailureText(err error) string {
	if fcerrors.IsUnauthorized(err) {
		return "Your session expired. Sign in again to load the latest version of this flow."
	}
	return "The flow could not be loaded from the server. Showing the last local copy."
}

// Save backs the graph up to the cache and sends it to the remote now.
// Returns ErrOffline without a remote; the cache backup is still written.
func (s *Session) Save(ctx context.Context) error {
	if err := s.guard.Backup("save"); err != nil {
		s.logger.Warn("backup before save failed", slog.String("error", err.Error()))
	}
	if s.saver == nil {
		return ErrOffline
	}
	return s.saver.Flush(ctx)
}

func (s *Session) reportSave(r autosave.Result) {
	if r.Status != autosave.StatusFailed {
		return
	}
	switch {
	case fcerrors.IsUnauthorized(r.Err):
		s.emit(LevelError, "Your session expired. Sign in again to keep saving.")
	case fcerrors.IsRetryable(r.Err):
		s.emit(LevelError, "The server is unavailable. Your changes are kept and will be saved with the next edit.")
	case fcerrors.IsPersistence(r.Err):
		s.emit(LevelError, fmt.Sprintf("Changes could not be saved: %v", r.Err))
	default:
		s.emit(LevelError, fmt.Sprintf("Changes could not be prepared for saving: %v", r.Err))
	}
}

// Drop inserts the node described by a palette payload at the pointer
// position, using the session viewport.
func (s *Session) Drop(payload []byte, pointer dragdrop.Point, canvas dragdrop.Rect) (flowcanvas.Node, error) {
	return s.ingestor.Ingest(payload, pointer, canvas, s.Viewport())
}

// ReplaceNodes replaces every node through the guard. Emptying a
// non-empty graph is refused; use Clear for that.
func (s *Session) ReplaceNodes(nodes []flowcanvas.Node) error {
	err := s.guard.ReplaceNodes(nodes)
	if fcerrors.IsDestructive(err) {
		s.emit(LevelWarning, "Removing every node was blocked. A backup of the flow was saved.")
	}
	return err
}

// Clear intentionally empties the flow and forgets its backups.
func (s *Session) Clear() error {
	if err := s.guard.Clear(); err != nil {
		return err
	}
	s.emit(LevelInfo, "Flow cleared.")
	return nil
}

// Recover restores the last backup when the graph is empty.
func (s *Session) Recover() (guard.Recovery, error) {
	rec, err := s.guard.RecoverEmergency()
	if err != nil {
		return rec, err
	}
	if rec.Source != guard.SourceNone {
		s.emit(LevelInfo, fmt.Sprintf("Recovered %d nodes and %d connections from the %s backup.", rec.Nodes, rec.Edges, rec.Source))
		s.store.RequestResync("")
	}
	if rec.Dropped > 0 {
		s.emit(LevelWarning, fmt.Sprintf("%d connections could not be restored", rec.Dropped))
	}
	return rec, nil
}

// Lint checks the graph against the catalog's connection limits.
func (s *Session) Lint() []catalog.Issue {
	return s.catalog.Lint(s.store.State())
}

// Viewport returns the main canvas viewport.
func (s *Session) Viewport() flowcanvas.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetViewport updates the main canvas viewport. A session is the
// minimap.ViewportController for its canvas.
func (s *Session) SetViewport(vp flowcanvas.Viewport) {
	s.mu.Lock()
	s.viewport = vp
	s.mu.Unlock()
}

// Minimap lays out the current graph for the minimap.
func (s *Session) Minimap(expanded bool) minimap.Layout {
	return minimap.NewLayout(s.store.Nodes(), expanded)
}

// MinimapDrag returns a drag that pans this session's viewport.
func (s *Session) MinimapDrag() *minimap.Drag {
	return minimap.NewDrag(s)
}

// RenderMinimap writes the minimap as a PNG, with the visible region of a
// canvas of the given size outlined when expanded.
func (s *Session) RenderMinimap(w io.Writer, expanded bool, canvas flowcanvas.Size) error {
	st := s.store.State()
	l := minimap.NewLayout(st.Nodes, expanded)
	return minimap.RenderPNG(w, l, st,
		minimap.WithPalette(s.catalog.Palette()),
		minimap.WithIndicator(s.Viewport(), canvas),
	)
}

// OnMessage registers fn for user-facing messages. fn may run on any
// goroutine and must not block.
func (s *Session) OnMessage(fn func(Message)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Messages returns the most recent messages, oldest first.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Session) emit(level Level, text string) {
	m := Message{Level: level, Text: text, At: s.now()}

	s.mu.Lock()
	s.messages = append(s.messages, m)
	if over := len(s.messages) - maxMessages; over > 0 {
		s.messages = append(s.messages[:0:0], s.messages[over:]...)
	}
	listeners := append([]func(Message){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(m)
	}
}

// Close stops background work, waits for a running save and releases the
// store and, when the session created it, the cache.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.saver != nil {
		s.saver.Stop()
	}
	errs := []error{s.guard.Close(), s.store.Close()}
	if s.ownsCache {
		errs = append(errs, s.cache.Close())
	}
	return errors.Join(errs...)
}
