package minimap

import (
	"sync"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
)

// ViewportController reads and updates the main canvas viewport.
type ViewportController interface {
	Viewport() flowcanvas.Viewport
	SetViewport(flowcanvas.Viewport)
}

// Pan converts a minimap drag delta into a new main-canvas viewport.
// Dragging right pans the main view left.
func Pan(vp flowcanvas.Viewport, delta Point, scale float64) flowcanvas.Viewport {
	if scale <= 0 {
		return vp
	}
	zoom := vp.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	vp.X -= delta.X / scale * zoom
	vp.Y -= delta.Y / scale * zoom
	return vp
}

// Drag tracks one pointer drag on the minimap. It is safe for concurrent
// use, though pointer events normally arrive from one goroutine.
type Drag struct {
	ctrl ViewportController

	mu     sync.Mutex
	active bool
	scale  float64
	last   Point
}

// NewDrag creates a drag that pans ctrl.
func NewDrag(ctrl ViewportController) *Drag {
	return &Drag{ctrl: ctrl}
}

// Begin starts a drag at p. Collapsed minimaps do not drag; Begin returns
// false for them.
func (d *Drag) Begin(l Layout, p Point) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !l.Expanded || l.Scale <= 0 {
		d.active = false
		return false
	}
	d.active, d.scale, d.last = true, l.Scale, p
	return true
}

// Move pans the main canvas by the motion since the last Begin or Move and
// returns the viewport it set. It returns false when no drag is active.
func (d *Drag) Move(p Point) (flowcanvas.Viewport, bool) {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return flowcanvas.Viewport{}, false
	}
	delta := p.Sub(d.last)
	d.last = p
	scale := d.scale
	d.mu.Unlock()

	vp := Pan(d.ctrl.Viewport(), delta, scale)
	d.ctrl.SetViewport(vp)
	return vp, true
}

// End finishes the drag.
func (d *Drag) End() {
	d.mu.Lock()
	d.active = false
	d.mu.Unlock()
}

// Active reports whether a drag is in progress.
func (d *Drag) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}
