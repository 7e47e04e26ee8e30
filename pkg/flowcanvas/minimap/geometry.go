package minimap

import (
	"math"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
)

// Frame is the pixel size of the minimap and its inner padding.
type Frame struct {
	Width   float64
	Height  float64
	Padding float64
}

// Minimap frame sizes.
var (
	Expanded  = Frame{Width: 180, Height: 180, Padding: 12}
	Collapsed = Frame{Width: 45, Height: 45, Padding: 5}
)

// FrameFor returns Expanded or Collapsed.
func FrameFor(expanded bool) Frame {
	if expanded {
		return Expanded
	}
	return Collapsed
}

// Center returns the frame's center point.
func (f Frame) Center() Point {
	return Point{X: f.Width / 2, Y: f.Height / 2}
}

// Margin bounds around the diagram.
const (
	MinMargin      = 30
	MarginFraction = 0.1
)

// Point is a location in minimap pixels.
type Point struct {
	X float64
	Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Rect is an axis-aligned rectangle. In graph space it is in graph units,
// in minimap space in pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the rectangle's center.
func (r Rect) Center() flowcanvas.Position {
	return flowcanvas.Position{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Bounds returns the box around every node's position and size, grown on
// each side by max(MinMargin, MarginFraction of its shorter side).
// Unmeasured nodes count as the default node size. With no nodes the box
// is the bare margin around the origin.
func Bounds(nodes []flowcanvas.Node) Rect {
	var minX, minY, maxX, maxY float64
	for i, n := range nodes {
		d := n.Dimensions()
		x0, y0 := n.Position.X, n.Position.Y
		x1, y1 := x0+d.Width, y0+d.Height
		if i == 0 {
			minX, minY, maxX, maxY = x0, y0, x1, y1
			continue
		}
		minX, minY = math.Min(minX, x0), math.Min(minY, y0)
		maxX, maxY = math.Max(maxX, x1), math.Max(maxY, y1)
	}

	w, h := maxX-minX, maxY-minY
	margin := math.Max(MinMargin, MarginFraction*math.Min(w, h))
	return Rect{
		X:      minX - margin,
		Y:      minY - margin,
		Width:  w + 2*margin,
		Height: h + 2*margin,
	}
}

// Layout is the affine map from graph space onto a minimap frame.
type Layout struct {
	Frame    Frame
	Expanded bool
	Diagram  Rect
	Scale    float64

	center flowcanvas.Position
	origin Point
}

// NewLayout fits the bounds of nodes into the expanded or collapsed frame
// with a uniform scale.
func NewLayout(nodes []flowcanvas.Node, expanded bool) Layout {
	f := FrameFor(expanded)
	b := Bounds(nodes)
	availW := f.Width - 2*f.Padding
	availH := f.Height - 2*f.Padding
	return Layout{
		Frame:    f,
		Expanded: expanded,
		Diagram:  b,
		Scale:    math.Min(availW/b.Width, availH/b.Height),
		center:   b.Center(),
		origin:   f.Center(),
	}
}

// Transform maps a graph point into the minimap.
func (l Layout) Transform(p flowcanvas.Position) Point {
	return Point{
		X: (p.X-l.center.X)*l.Scale + l.origin.X,
		Y: (p.Y-l.center.Y)*l.Scale + l.origin.Y,
	}
}

// Inverse maps a minimap point back into graph space.
func (l Layout) Inverse(p Point) flowcanvas.Position {
	return flowcanvas.Position{
		X: (p.X-l.origin.X)/l.Scale + l.center.X,
		Y: (p.Y-l.origin.Y)/l.Scale + l.center.Y,
	}
}

// TransformRect maps a graph-space rectangle into the minimap.
func (l Layout) TransformRect(r Rect) Rect {
	tl := l.Transform(flowcanvas.Position{X: r.X, Y: r.Y})
	return Rect{X: tl.X, Y: tl.Y, Width: r.Width * l.Scale, Height: r.Height * l.Scale}
}

// Visible returns the graph-space region shown on a main canvas of the
// given pixel size. A non-positive zoom counts as 1.
func Visible(vp flowcanvas.Viewport, canvas flowcanvas.Size) Rect {
	zoom := vp.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return Rect{
		X:      -vp.X / zoom,
		Y:      -vp.Y / zoom,
		Width:  canvas.Width / zoom,
		Height: canvas.Height / zoom,
	}
}

// Indicator returns the main canvas's visible region in minimap pixels.
func (l Layout) Indicator(vp flowcanvas.Viewport, canvas flowcanvas.Size) Rect {
	return l.TransformRect(Visible(vp, canvas))
}

// NodeRect returns the marker drawn for n. Expanded markers follow the
// node size, clamped to stay legible; collapsed markers are fixed dots.
func (l Layout) NodeRect(n flowcanvas.Node) Rect {
	p := l.Transform(n.Position)
	if !l.Expanded {
		return Rect{X: p.X, Y: p.Y, Width: 5, Height: 5}
	}
	d := n.Dimensions()
	return Rect{
		X:      p.X,
		Y:      p.Y,
		Width:  clamp(d.Width*l.Scale*0.8, 8, 20),
		Height: clamp(d.Height*l.Scale*0.8, 6, 15),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
