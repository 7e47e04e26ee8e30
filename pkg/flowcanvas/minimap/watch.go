package minimap

import (
	"context"
	"math"
	"sync"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/event"
)

// DefaultTolerance is the node movement, in graph units, below which Watch
// stays quiet.
const DefaultTolerance = 1.0

type nodeShape struct {
	typ  flowcanvas.NodeType
	pos  flowcanvas.Position
	size flowcanvas.Size
}

// shape is what the minimap draws of a graph.
type shape struct {
	nodes map[string]nodeShape
	edges map[flowcanvas.Pair]struct{}
}

func shapeOf(st flowcanvas.State) shape {
	s := shape{
		nodes: make(map[string]nodeShape, len(st.Nodes)),
		edges: make(map[flowcanvas.Pair]struct{}, len(st.Edges)),
	}
	for _, n := range st.Nodes {
		s.nodes[n.ID] = nodeShape{typ: n.Type, pos: n.Position, size: n.Size}
	}
	for _, e := range st.Edges {
		s.edges[e.Pair()] = struct{}{}
	}
	return s
}

// differs reports whether the minimap would draw s and o visibly
// differently: a node added, removed, retyped, resized or moved further
// than tolerance, or a change in the set of connected pairs.
func (s shape) differs(o shape, tolerance float64) bool {
	if len(s.nodes) != len(o.nodes) || len(s.edges) != len(o.edges) {
		return true
	}
	for id, a := range s.nodes {
		b, ok := o.nodes[id]
		if !ok || a.typ != b.typ || a.size != b.size {
			return true
		}
		if math.Hypot(a.pos.X-b.pos.X, a.pos.Y-b.pos.Y) > tolerance {
			return true
		}
	}
	for p := range s.edges {
		if _, ok := o.edges[p]; !ok {
			return true
		}
	}
	return false
}

// Watch calls fn with the new state whenever the graph changes in a way
// the minimap would show. Movement is measured against the state last
// reported, so slow drags still report once they add up to tolerance.
// A non-positive tolerance selects DefaultTolerance.
func Watch(store *flowcanvas.Store, tolerance float64, fn func(flowcanvas.State)) event.Subscription {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	var mu sync.Mutex
	base := shapeOf(store.State())

	return store.OnChange(func(_ context.Context, c flowcanvas.Change) {
		next := shapeOf(c.State)

		mu.Lock()
		changed := next.differs(base, tolerance)
		if changed {
			base = next
		}
		mu.Unlock()

		if changed {
			fn(c.State)
		}
	})
}
