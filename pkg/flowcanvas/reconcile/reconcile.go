package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	fcerrors "github.com/randalmurphal/flowcanvas/pkg/flowcanvas/errors"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/observability"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

// DropReason says why an edge was left out of a result.
type DropReason string

// Drop reasons.
const (
	DropUnresolvedSource DropReason = "unresolved source"
	DropUnresolvedTarget DropReason = "unresolved target"
	DropDuplicate        DropReason = "duplicate"
)

// Errors carried by Drop.Err.
var (
	ErrUnresolvedEndpoint = errors.New("endpoint matched no node")
	ErrDuplicatePair      = errors.New("pair already connected")
)

// Drop describes one raw edge that did not make it into the result.
type Drop struct {
	// Index is the position of the edge in the input.
	Index  int
	EdgeID string
	Reason DropReason
	// Value is the endpoint that failed, or the pair for duplicates.
	Value string
}

// Err returns the drop as a categorized error: unresolvable for a missing
// endpoint, invariant for a duplicate pair.
func (d Drop) Err() error {
	ctx := fmt.Sprintf("edge %d (%s): %s", d.Index, d.EdgeID, d.Value)
	if d.Reason == DropDuplicate {
		return fcerrors.Invariant(ErrDuplicatePair, ctx)
	}
	return fcerrors.Unresolvable(fmt.Errorf("%s: %w", d.Reason, ErrUnresolvedEndpoint), ctx)
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Edges []flowcanvas.Edge
	Drops []Drop

	// Resolutions counts endpoint hits per strategy name.
	Resolutions map[string]int
}

// Unresolved returns the number of edges dropped because an endpoint
// could not be resolved. Duplicates are not counted.
func (r Result) Unresolved() int {
	n := 0
	for _, d := range r.Drops {
		if d.Reason != DropDuplicate {
			n++
		}
	}
	return n
}

// Reconciler resolves raw edges against a node set. It holds no state
// between calls beyond its configuration and is safe for concurrent use.
type Reconciler struct {
	chain   Chain
	stamp   int64
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithChain replaces the strategy chain.
func WithChain(c Chain) Option {
	return func(r *Reconciler) {
		if len(c) > 0 {
			r.chain = c
		}
	}
}

// WithStamp sets the timestamp used in generated edge ids.
// Default: the creation time of the Reconciler in Unix milliseconds.
func WithStamp(ms int64) Option {
	return func(r *Reconciler) {
		r.stamp = ms
	}
}

// WithLogger sets the logger drops are reported to.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records reconciliation counts.
// Default: observability.NoopMetrics
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(r *Reconciler) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New creates a Reconciler using DefaultChain.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		chain:   DefaultChain,
		stamp:   time.Now().UnixMilli(),
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile resolves both endpoints of every raw edge and returns the
// edges that could be placed, in input order.
//
// The same input always yields the same output for a given Reconciler.
// Neither argument is modified.
func (r *Reconciler) Reconcile(edges []wire.RawEdge, nodes []flowcanvas.Node) Result {
	start := time.Now()
	table := NewAliasTable(nodes)

	res := Result{
		Edges:       make([]flowcanvas.Edge, 0, len(edges)),
		Resolutions: make(map[string]int, len(r.chain)),
	}
	pairs := make(map[flowcanvas.Pair]struct{}, len(edges))
	ids := make(map[string]struct{}, len(edges))

	for i, raw := range edges {
		src, srcHow, srcOK := r.chain.Resolve(SourceEndpoint(raw), table)
		tgt, tgtHow, tgtOK := r.chain.Resolve(TargetEndpoint(raw), table)

		switch {
		case !srcOK:
			res.Drops = append(res.Drops, r.drop(i, raw, DropUnresolvedSource, raw.Source.String()))
			continue
		case !tgtOK:
			res.Drops = append(res.Drops, r.drop(i, raw, DropUnresolvedTarget, raw.Target.String()))
			continue
		}

		pair := flowcanvas.Pair{Source: src, Target: tgt}
		if _, dup := pairs[pair]; dup {
			res.Drops = append(res.Drops, r.drop(i, raw, DropDuplicate, pair.String()))
			continue
		}
		pairs[pair] = struct{}{}
		res.Resolutions[srcHow]++
		res.Resolutions[tgtHow]++

		e := r.normalize(raw, pair)
		if _, taken := ids[e.ID]; taken {
			e.ID = r.edgeID(pair, ids)
		}
		ids[e.ID] = struct{}{}
		res.Edges = append(res.Edges, e)
	}

	r.metrics.RecordReconcile(context.Background(), len(res.Edges), len(res.Drops), time.Since(start))
	if len(res.Drops) > 0 {
		r.logger.Info("edges dropped during reconciliation",
			slog.Int("kept", len(res.Edges)),
			slog.Int("dropped", len(res.Drops)),
			slog.Int("unresolved", res.Unresolved()))
	}
	return res
}

func (r *Reconciler) normalize(raw wire.RawEdge, pair flowcanvas.Pair) flowcanvas.Edge {
	e := flowcanvas.Edge{
		ID:             raw.ID.String(),
		Source:         pair.Source,
		Target:         pair.Target,
		SourceHandle:   wire.SanitizeHandle(raw.SourceHandle.String()),
		TargetHandle:   wire.SanitizeHandle(raw.TargetHandle.String()),
		Style:          flowcanvas.DefaultEdgeStyle,
		Animated:       raw.Animated,
		Label:          raw.Label,
		Data:           flowcanvas.CloneData(raw.Data),
		SourceOriginal: firstNonEmpty(raw.SourceOriginal.String(), raw.Source.String()),
		TargetOriginal: firstNonEmpty(raw.TargetOriginal.String(), raw.Target.String()),
	}
	if e.ID == "" {
		e.ID = "edge-" + pair.String() + "-" + strconv.FormatInt(r.stamp, 10)
	}
	if e.SourceHandle == "" {
		e.SourceHandle = flowcanvas.DefaultHandle
	}
	if raw.Style != nil && !raw.Style.IsZero() {
		e.Style = *raw.Style
	}
	return e
}

// edgeID generates an id for pair that is not in taken.
func (r *Reconciler) edgeID(pair flowcanvas.Pair, taken map[string]struct{}) string {
	stamp := r.stamp
	for {
		id := "edge-" + pair.String() + "-" + strconv.FormatInt(stamp, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		stamp++
	}
}

func (r *Reconciler) drop(i int, raw wire.RawEdge, reason DropReason, value string) Drop {
	d := Drop{Index: i, EdgeID: raw.ID.String(), Reason: reason, Value: value}
	observability.LogEdgeDropped(r.logger, d.EdgeID, string(reason), value)
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
