package minimap

import "github.com/randalmurphal/flowcanvas/pkg/flowcanvas"

// Edge curve parameters.
const (
	CurveThreshold = 15
	CurveFactor    = 0.15
)

// Path is an edge as drawn on the minimap: a straight segment, or a single
// quadratic curve through Control.
type Path struct {
	From    Point
	To      Point
	Control Point
	Curved  bool
}

// EdgePath returns a straight path when from and to are closer than
// CurveThreshold, else a quadratic curve whose control point sits off the
// midpoint, perpendicular to the segment, by CurveFactor of its length.
func EdgePath(from, to Point) Path {
	d := from.Dist(to)
	if d < CurveThreshold {
		return Path{From: from, To: to, Control: midpoint(from, to)}
	}
	dx, dy := to.X-from.X, to.Y-from.Y
	mid := midpoint(from, to)
	return Path{
		From:    from,
		To:      to,
		Control: Point{X: mid.X - dy*CurveFactor, Y: mid.Y + dx*CurveFactor},
		Curved:  true,
	}
}

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Edge returns the path between the centers of src and tgt. Collapsed
// layouts always draw straight.
func (l Layout) Edge(src, tgt flowcanvas.Node) Path {
	from, to := l.Transform(src.Center()), l.Transform(tgt.Center())
	if !l.Expanded {
		return Path{From: from, To: to, Control: midpoint(from, to)}
	}
	return EdgePath(from, to)
}

// Edges returns the paths of every edge whose endpoints are both in
// nodes, in edge order.
func (l Layout) Edges(nodes []flowcanvas.Node, edges []flowcanvas.Edge) []Path {
	byID := make(map[string]int, len(nodes))
	for i, n := range nodes {
		byID[n.ID] = i
	}
	paths := make([]Path, 0, len(edges))
	for _, e := range edges {
		si, ok := byID[e.Source]
		if !ok {
			continue
		}
		ti, ok := byID[e.Target]
		if !ok {
			continue
		}
		paths = append(paths, l.Edge(nodes[si], nodes[ti]))
	}
	return paths
}
