package flowcanvas

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/event"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/observability"
)

// DuplicateOffset is how far a duplicated node is moved from its original.
const DuplicateOffset = 50

// DuplicateSuffix is appended to the label of a duplicated node.
const DuplicateSuffix = " (copy)"

type historyMode int

const (
	historySkip historyMode = iota
	historyRecord
	historyDrag
)

// Store is the authoritative in-memory graph. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	nodes      []Node
	edges      []Edge
	history    *History
	dragOrigin *Snapshot
	seq        uint64
	closed     bool

	// outbox holds notifications in commit order until dispatch hands them
	// to the bus. Mutators never wait on a listener.
	outMu   sync.Mutex
	outbox  []event.Event
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	bus     event.Bus
	ownsBus bool

	graphID string
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates an empty graph store.
func NewStore(opts ...StoreOption) *Store {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store{
		history: NewHistory(cfg.historyLimit),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		bus:     cfg.bus,
		graphID: cfg.graphID,
		logger:  observability.EnrichLogger(cfg.logger, cfg.graphID),
		now:     cfg.now,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if s.bus == nil {
		s.bus = event.NewBus(event.DefaultBusConfig)
		s.ownsBus = true
	}
	go s.dispatch()
	return s
}

// GraphID returns the identifier of the graph held by the store.
func (s *Store) GraphID() string {
	return s.graphID
}

// State returns a deep copy of the current graph.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Nodes returns a deep copy of the current nodes.
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneNodes(s.nodes)
}

// Edges returns a deep copy of the current edges.
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneEdges(s.edges)
}

// Node returns a copy of the node with id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.nodeIndexLocked(id); i >= 0 {
		return s.nodes[i].Clone(), true
	}
	return Node{}, false
}

// Edge returns a copy of the edge with id.
func (s *Store) Edge(id string) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.edgeIndexLocked(id); i >= 0 {
		return s.edges[i].Clone(), true
	}
	return Edge{}, false
}

// Seq returns the sequence number of the last committed mutation.
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// ApplyNodeChanges applies a batch of node changes. Invalid entries are
// logged and skipped. Removing a node removes its incident edges. The
// batch becomes one undo step unless it only selects, measures or drags.
func (s *Store) ApplyNodeChanges(changes []NodeChange) bool {
	mode := historySkip
	for _, c := range changes {
		if c.significant() {
			mode = historyRecord
			break
		}
		if c.Kind == ChangePosition && c.Dragging {
			mode = historyDrag
		}
	}

	return s.apply(ReasonNodes, mode, func() bool {
		applied := false
		for _, c := range changes {
			if s.applyNodeChangeLocked(c) {
				applied = true
			}
		}
		return applied
	})
}

func (s *Store) applyNodeChangeLocked(c NodeChange) bool {
	if c.Kind == ChangeAdd {
		if c.Node == nil {
			observability.LogNodeRejected(s.logger, c.ID, "add without node")
			return false
		}
		return s.addNodeLocked(*c.Node) == nil
	}

	id := c.ID
	if id == "" && c.Node != nil {
		id = c.Node.ID
	}
	i := s.nodeIndexLocked(id)
	if i < 0 {
		observability.LogNodeRejected(s.logger, id, "unknown node")
		return false
	}

	switch c.Kind {
	case ChangeRemove:
		s.removeNodeLocked(i)
	case ChangePosition:
		if c.Position == nil {
			return false
		}
		s.nodes[i].Position = *c.Position
	case ChangeSelect:
		s.nodes[i].Selected = c.Selected
	case ChangeData:
		s.nodes[i].Data = mergeData(s.nodes[i].Data, c.Data)
	case ChangeDimensions:
		if c.Size == nil {
			return false
		}
		s.nodes[i].Size = *c.Size
	case ChangeReplace:
		if c.Node == nil || c.Node.ID != id {
			observability.LogNodeRejected(s.logger, id, "replace must keep the node id")
			return false
		}
		n := c.Node.Clone()
		ensureLabel(&n)
		s.nodes[i] = n
	default:
		observability.LogNodeRejected(s.logger, id, "unknown change kind "+string(c.Kind))
		return false
	}
	return true
}

// ApplyEdgeChanges applies a batch of edge changes. Added edges must
// reference existing nodes and a pair not already connected.
func (s *Store) ApplyEdgeChanges(changes []EdgeChange) bool {
	mode := historySkip
	for _, c := range changes {
		if c.significant() {
			mode = historyRecord
			break
		}
	}

	return s.apply(ReasonEdges, mode, func() bool {
		applied := false
		for _, c := range changes {
			if s.applyEdgeChangeLocked(c) {
				applied = true
			}
		}
		return applied
	})
}

func (s *Store) applyEdgeChangeLocked(c EdgeChange) bool {
	if c.Kind == ChangeAdd {
		if c.Edge == nil {
			observability.LogEdgeDropped(s.logger, c.ID, "add without edge", "")
			return false
		}
		e := c.Edge.Clone()
		if reason := s.edgeProblemLocked(e, -1); reason != "" {
			observability.LogEdgeDropped(s.logger, e.ID, reason, e.Pair().String())
			return false
		}
		normalizeEdge(&e)
		if e.ID == "" || s.edgeIndexLocked(e.ID) >= 0 {
			e.ID = s.edgeIDLocked(e.Source, e.Target)
		}
		s.edges = append(s.edges, e)
		return true
	}

	i := s.edgeIndexLocked(c.ID)
	if i < 0 {
		return false
	}

	switch c.Kind {
	case ChangeRemove:
		s.edges = append(s.edges[:i], s.edges[i+1:]...)
	case ChangeSelect:
		s.edges[i].Selected = c.Selected
	case ChangeData:
		s.edges[i].Data = mergeData(s.edges[i].Data, c.Data)
	case ChangeReplace:
		if c.Edge == nil || c.Edge.ID != c.ID {
			return false
		}
		e := c.Edge.Clone()
		if reason := s.edgeProblemLocked(e, i); reason != "" {
			observability.LogEdgeDropped(s.logger, e.ID, reason, e.Pair().String())
			return false
		}
		normalizeEdge(&e)
		s.edges[i] = e
	default:
		return false
	}
	return true
}

// Connect creates an edge between two node handles. It returns false
// without changing the graph when the pair is already connected, and logs
// a warning when either endpoint is missing or unknown.
func (s *Store) Connect(c Connection) (Edge, bool) {
	if c.Source == "" || c.Target == "" {
		observability.LogConnectRejected(s.logger, c.Source, c.Target, "missing endpoint")
		return Edge{}, false
	}

	var created Edge
	ok := s.apply(ReasonConnect, historyRecord, func() bool {
		if s.nodeIndexLocked(c.Source) < 0 || s.nodeIndexLocked(c.Target) < 0 {
			observability.LogConnectRejected(s.logger, c.Source, c.Target, "unknown node")
			return false
		}
		if s.hasPairLocked(Pair{Source: c.Source, Target: c.Target}, -1) {
			s.logger.Debug("duplicate connection ignored",
				slog.String("source", c.Source),
				slog.String("target", c.Target))
			return false
		}
		created = Edge{
			ID:           s.edgeIDLocked(c.Source, c.Target),
			Source:       c.Source,
			Target:       c.Target,
			SourceHandle: c.SourceHandle,
			TargetHandle: c.TargetHandle,
		}
		normalizeEdge(&created)
		s.edges = append(s.edges, created)
		return true
	})
	if !ok {
		return Edge{}, false
	}
	return created.Clone(), true
}

// AddNode inserts a node. The node must have an id and a known type.
// A missing label defaults to the title-cased type name.
func (s *Store) AddNode(n Node) error {
	var err error
	s.apply(ReasonNodes, historyRecord, func() bool {
		err = s.addNodeLocked(n)
		return err == nil
	})
	if err == nil && s.isClosed() {
		return ErrStoreClosed
	}
	return err
}

func (s *Store) addNodeLocked(n Node) error {
	if n.ID == "" || !n.Type.Valid() {
		observability.LogNodeRejected(s.logger, n.ID, "missing id or unknown type")
		return fmt.Errorf("%w: id=%q type=%q", ErrInvalidNode, n.ID, n.Type)
	}
	if s.nodeIndexLocked(n.ID) >= 0 {
		observability.LogNodeRejected(s.logger, n.ID, "duplicate id")
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	n = n.Clone()
	ensureLabel(&n)
	s.nodes = append(s.nodes, n)
	return nil
}

// UpdateNodeData merges patch into the node's data. A nil value deletes a key.
func (s *Store) UpdateNodeData(id string, patch map[string]any) bool {
	return s.ApplyNodeChanges([]NodeChange{{Kind: ChangeData, ID: id, Data: patch}})
}

// MoveNode sets a node position. Intermediate drag positions (dragging
// true) are folded into the undo step recorded when the drag ends.
func (s *Store) MoveNode(id string, pos Position, dragging bool) bool {
	return s.ApplyNodeChanges([]NodeChange{{Kind: ChangePosition, ID: id, Position: &pos, Dragging: dragging}})
}

// SelectNode toggles node selection. Selection never enters history.
func (s *Store) SelectNode(id string, selected bool) bool {
	return s.ApplyNodeChanges([]NodeChange{{Kind: ChangeSelect, ID: id, Selected: selected}})
}

// DeleteNode removes a node and its incident edges.
func (s *Store) DeleteNode(id string) bool {
	return s.ApplyNodeChanges([]NodeChange{{Kind: ChangeRemove, ID: id}})
}

// DuplicateNode copies a node, offset by DuplicateOffset on both axes and
// with DuplicateSuffix appended to its label. Edges are not copied.
func (s *Store) DuplicateNode(id string) (Node, error) {
	var dup Node
	var err error
	ok := s.apply(ReasonDuplicate, historyRecord, func() bool {
		i := s.nodeIndexLocked(id)
		if i < 0 {
			err = fmt.Errorf("%w: %s", ErrNodeNotFound, id)
			return false
		}
		dup = s.nodes[i].Clone()
		dup.ID = s.nodeIDLocked(dup.Type)
		dup.Position = dup.Position.Add(DuplicateOffset, DuplicateOffset)
		dup.Selected = false
		if dup.Data == nil {
			dup.Data = make(map[string]any)
		}
		dup.Data[LabelKey] = s.nodes[i].Label() + DuplicateSuffix
		s.nodes = append(s.nodes, dup)
		return true
	})
	if err != nil {
		return Node{}, err
	}
	if !ok {
		return Node{}, ErrStoreClosed
	}
	return dup.Clone(), nil
}

// RemoveEdge removes one edge.
func (s *Store) RemoveEdge(id string) bool {
	return s.ApplyEdgeChanges([]EdgeChange{{Kind: ChangeRemove, ID: id}})
}

// UpdateEdgeData merges patch into the edge's data.
func (s *Store) UpdateEdgeData(id string, patch map[string]any) bool {
	return s.ApplyEdgeChanges([]EdgeChange{{Kind: ChangeData, ID: id, Data: patch}})
}

// ReplaceNodes swaps the whole node set as one undo step. Edges left
// without an endpoint are dropped. Nodes without an id, with an unknown
// type or with a repeated id are skipped.
//
// This is the raw operation; callers that may hand in an empty set by
// accident go through guard.Guard instead.
func (s *Store) ReplaceNodes(nodes []Node) bool {
	return s.apply(ReasonReplace, historyRecord, func() bool {
		s.nodes = s.sanitizeNodesLocked(nodes)
		s.edges = s.sanitizeEdgesLocked(s.edges)
		return true
	})
}

// ReplaceOutcome reports what ReplaceNodesIf saw and did.
type ReplaceOutcome struct {
	// Before is the graph as it was when the lock was taken.
	Before State

	// Seq is the change sequence number of Before.
	Seq uint64

	// Applied reports whether the swap happened.
	Applied bool
}

// ReplaceNodesIf is ReplaceNodes with a precondition. allow receives the
// current graph and the sanitized replacement; the swap happens only when
// it returns true. Both run under the same lock, so no mutation can land
// between the check and the swap. allow must not call back into the store.
func (s *Store) ReplaceNodesIf(nodes []Node, allow func(cur State, next []Node) bool) ReplaceOutcome {
	var out ReplaceOutcome
	s.apply(ReasonReplace, historyRecord, func() bool {
		out.Before = s.stateLocked()
		out.Seq = s.seq
		next := s.sanitizeNodesLocked(nodes)
		if !allow(out.Before, next) {
			return false
		}
		out.Applied = true
		s.nodes = next
		s.edges = s.sanitizeEdgesLocked(s.edges)
		return true
	})
	return out
}

// ReplaceEdges swaps the whole edge set as one undo step. Edges with
// unknown endpoints or a repeated pair are dropped and logged.
func (s *Store) ReplaceEdges(edges []Edge) bool {
	return s.apply(ReasonReplace, historyRecord, func() bool {
		s.edges = s.sanitizeEdgesLocked(CloneEdges(edges))
		return true
	})
}

// Load replaces the graph with a freshly loaded one and clears history.
// Load changes are not significant: they do not trigger saves.
func (s *Store) Load(state State) bool {
	return s.apply(ReasonLoad, historySkip, func() bool {
		s.history.Clear()
		s.dragOrigin = nil
		s.nodes = s.sanitizeNodesLocked(state.Nodes)
		s.edges = s.sanitizeEdgesLocked(CloneEdges(state.Edges))
		return true
	})
}

// Restore replaces nodes and edges in one undo step. Unlike Load it keeps
// history and the change is significant, so a recovered graph gets saved.
func (s *Store) Restore(state State) bool {
	return s.apply(ReasonRestore, historyRecord, func() bool {
		s.nodes = s.sanitizeNodesLocked(state.Nodes)
		s.edges = s.sanitizeEdgesLocked(CloneEdges(state.Edges))
		return true
	})
}

// Undo restores the previous undo step. No-op at the boundary.
func (s *Store) Undo() bool {
	return s.apply(ReasonUndo, historySkip, func() bool {
		prev, ok := s.history.Undo(Snapshot{State: s.stateLocked(), Timestamp: s.now()})
		if !ok {
			return false
		}
		s.dragOrigin = nil
		s.setLocked(prev.State)
		return true
	})
}

// Redo re-applies the last undone step. No-op at the boundary.
func (s *Store) Redo() bool {
	return s.apply(ReasonRedo, historySkip, func() bool {
		next, ok := s.history.Redo(Snapshot{State: s.stateLocked(), Timestamp: s.now()})
		if !ok {
			return false
		}
		s.dragOrigin = nil
		s.setLocked(next.State)
		return true
	})
}

// CanUndo reports whether Undo would change the graph.
func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would change the graph.
func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanRedo()
}

// ClearHistory drops all undo and redo steps.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
	s.dragOrigin = nil
}

// OnChange registers fn for every committed mutation. fn runs on its own
// goroutine, after the mutation, in commit order, and may mutate the store
// itself. The State in a Change is shared between listeners and must not
// be modified.
func (s *Store) OnChange(fn func(context.Context, Change)) event.Subscription {
	return s.subscribe(EventChanged, func(ctx context.Context, evt event.Event) {
		if c, ok := event.Payload[Change](evt); ok {
			fn(ctx, c)
		}
	})
}

// OnResync registers fn for repaint requests.
func (s *Store) OnResync(fn func(context.Context, Resync)) event.Subscription {
	return s.subscribe(EventResync, func(ctx context.Context, evt event.Event) {
		if r, ok := event.Payload[Resync](evt); ok {
			fn(ctx, r)
		}
	})
}

// RequestResync asks the rendering layer to repaint. An empty edgeID
// repaints everything.
func (s *Store) RequestResync(edgeID string) {
	if s.isClosed() {
		return
	}
	s.enqueue(event.New(EventResync, "store", s.graphID, Resync{EdgeID: edgeID}))
}

// Close stops notifications. Mutations after Close are ignored and
// notifications not yet handed to the bus are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done

	if s.ownsBus {
		return s.bus.Close()
	}
	return nil
}

// apply runs fn under the write lock and, when the graph changed, records
// history according to mode and publishes a Change.
func (s *Store) apply(reason Reason, mode historyMode, fn func() bool) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	prev := Snapshot{State: s.stateLocked(), Timestamp: s.now()}
	if !fn() {
		s.mu.Unlock()
		return false
	}

	cur := s.stateLocked()
	changed := !reflect.DeepEqual(prev.State, cur)
	pushed := false

	switch mode {
	case historyRecord:
		origin := prev
		if s.dragOrigin != nil {
			origin = *s.dragOrigin
			s.dragOrigin = nil
		}
		if !reflect.DeepEqual(origin.State, cur) {
			s.history.Push(origin)
			pushed = true
		}
	case historyDrag:
		if changed && s.dragOrigin == nil {
			s.dragOrigin = &prev
		}
	}

	if !changed && !pushed {
		s.mu.Unlock()
		return false
	}

	s.seq++
	change := Change{
		Seq:         s.seq,
		Reason:      reason,
		Significant: pushed || reason == ReasonUndo || reason == ReasonRedo,
		State:       cur,
	}

	s.enqueue(event.New(EventChanged, "store", s.graphID, change))
	s.mu.Unlock()
	return true
}

// enqueue queues evt for dispatch. Callers holding mu get commit order.
func (s *Store) enqueue(evt event.Event) {
	s.outMu.Lock()
	s.outbox = append(s.outbox, evt)
	s.outMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatch publishes queued notifications one at a time until Close. A
// full listener queue stalls dispatch, not the mutation that caused it.
func (s *Store) dispatch() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		for {
			s.outMu.Lock()
			batch := s.outbox
			s.outbox = nil
			s.outMu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, evt := range batch {
				if s.ctx.Err() != nil {
					return
				}
				s.publish(evt)
			}
		}
	}
}

func (s *Store) publish(evt event.Event) {
	if err := s.bus.Publish(s.ctx, evt); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Warn("graph notification not delivered",
			slog.String("event", evt.Type()),
			slog.String("error", err.Error()))
	}
}

func (s *Store) subscribe(eventType string, fn func(context.Context, event.Event)) event.Subscription {
	sub := s.bus.Subscribe([]string{eventType}, event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		fn(ctx, evt)
		return nil
	}))
	if sub == nil {
		return closedSubscription{}
	}
	return sub
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) stateLocked() State {
	return State{Nodes: CloneNodes(s.nodes), Edges: CloneEdges(s.edges)}
}

func (s *Store) setLocked(st State) {
	s.nodes = CloneNodes(st.Nodes)
	s.edges = CloneEdges(st.Edges)
}

func (s *Store) nodeIndexLocked(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) edgeIndexLocked(id string) int {
	for i := range s.edges {
		if s.edges[i].ID == id {
			return i
		}
	}
	return -1
}

// hasPairLocked reports whether an edge other than skip connects p.
func (s *Store) hasPairLocked(p Pair, skip int) bool {
	for i := range s.edges {
		if i != skip && s.edges[i].Pair() == p {
			return true
		}
	}
	return false
}

// edgeProblemLocked returns why e cannot live at index self, or "".
func (s *Store) edgeProblemLocked(e Edge, self int) string {
	switch {
	case e.Source == "" || e.Target == "":
		return "missing endpoint"
	case s.nodeIndexLocked(e.Source) < 0:
		return "unknown source"
	case s.nodeIndexLocked(e.Target) < 0:
		return "unknown target"
	case s.hasPairLocked(e.Pair(), self):
		return "duplicate pair"
	}
	return ""
}

func (s *Store) removeNodeLocked(i int) {
	id := s.nodes[i].ID
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	s.edges = kept
}

func (s *Store) sanitizeNodesLocked(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			observability.LogNodeRejected(s.logger, "", "missing id")
			continue
		}
		if !n.Type.Valid() {
			observability.LogNodeRejected(s.logger, n.ID, "unknown type "+string(n.Type))
			continue
		}
		if _, dup := seen[n.ID]; dup {
			observability.LogNodeRejected(s.logger, n.ID, "duplicate id")
			continue
		}
		seen[n.ID] = struct{}{}
		n = n.Clone()
		ensureLabel(&n)
		out = append(out, n)
	}
	return out
}

// sanitizeEdgesLocked keeps edges whose endpoints exist, one per pair.
// It takes ownership of edges.
func (s *Store) sanitizeEdgesLocked(edges []Edge) []Edge {
	ids := make(map[string]struct{}, len(s.nodes))
	for _, n := range s.nodes {
		ids[n.ID] = struct{}{}
	}

	out := make([]Edge, 0, len(edges))
	pairs := make(map[Pair]struct{}, len(edges))
	edgeIDs := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		_, srcOK := ids[e.Source]
		_, tgtOK := ids[e.Target]
		if !srcOK || !tgtOK {
			observability.LogEdgeDropped(s.logger, e.ID, "dangling endpoint", e.Pair().String())
			continue
		}
		if _, dup := pairs[e.Pair()]; dup {
			observability.LogEdgeDropped(s.logger, e.ID, "duplicate pair", e.Pair().String())
			continue
		}
		pairs[e.Pair()] = struct{}{}

		normalizeEdge(&e)
		if _, dup := edgeIDs[e.ID]; dup || e.ID == "" {
			e.ID = "edge-" + e.Pair().String()
		}
		edgeIDs[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// edgeIDLocked returns "edge-{source}-{target}-{unixMillis}", bumped until unique.
func (s *Store) edgeIDLocked(source, target string) string {
	stamp := s.now().UnixMilli()
	for {
		id := "edge-" + source + "-" + target + "-" + strconv.FormatInt(stamp, 10)
		if s.edgeIndexLocked(id) < 0 {
			return id
		}
		stamp++
	}
}

// nodeIDLocked returns "{type}-{unixMillis}", bumped until unique.
func (s *Store) nodeIDLocked(t NodeType) string {
	stamp := s.now().UnixMilli()
	for {
		id := string(t) + "-" + strconv.FormatInt(stamp, 10)
		if s.nodeIndexLocked(id) < 0 {
			return id
		}
		stamp++
	}
}

func ensureLabel(n *Node) {
	if _, ok := n.Data[LabelKey]; ok {
		return
	}
	if n.Data == nil {
		n.Data = make(map[string]any, 1)
	}
	n.Data[LabelKey] = DefaultLabel(n.Type)
}

// normalizeEdge fills the source handle and style defaults.
func normalizeEdge(e *Edge) {
	if e.SourceHandle == "" {
		e.SourceHandle = DefaultHandle
	}
	if e.Style.IsZero() {
		e.Style = DefaultEdgeStyle
	}
}

type closedSubscription struct{}

func (closedSubscription) Unsubscribe() {}
