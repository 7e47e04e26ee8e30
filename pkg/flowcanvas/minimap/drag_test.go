package minimap_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/minimap"
)

type viewportRecorder struct {
	mu  sync.Mutex
	vp  flowcanvas.Viewport
	set []flowcanvas.Viewport
}

func (r *viewportRecorder) Viewport() flowcanvas.Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vp
}

func (r *viewportRecorder) SetViewport(vp flowcanvas.Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vp = vp
	r.set = append(r.set, vp)
}

func TestPan(t *testing.T) {
	vp := flowcanvas.Viewport{X: 10, Y: 20, Zoom: 2}
	got := minimap.Pan(vp, minimap.Point{X: 5, Y: -3}, 0.5)
	assert.Equal(t, flowcanvas.Viewport{X: -10, Y: 32, Zoom: 2}, got)

	assert.Equal(t, vp, minimap.Pan(vp, minimap.Point{X: 5}, 0), "degenerate scale leaves the viewport")
}

func TestDrag(t *testing.T) {
	ctrl := &viewportRecorder{vp: flowcanvas.Viewport{Zoom: 1}}
	d := minimap.NewDrag(ctrl)
	l := minimap.NewLayout([]flowcanvas.Node{at("a", 0, 0)}, true)

	_, ok := d.Move(minimap.Point{X: 10})
	assert.False(t, ok, "no drag before Begin")

	require.True(t, d.Begin(l, minimap.Point{X: 50, Y: 50}))
	assert.True(t, d.Active())

	vp, ok := d.Move(minimap.Point{X: 60, Y: 50})
	require.True(t, ok)
	assert.InDelta(t, -10/l.Scale, vp.X, 1e-9, "drag right pans left")
	assert.Zero(t, vp.Y)

	vp, _ = d.Move(minimap.Point{X: 60, Y: 40})
	assert.InDelta(t, -10/l.Scale, vp.X, 1e-9)
	assert.InDelta(t, 10/l.Scale, vp.Y, 1e-9)

	d.End()
	assert.False(t, d.Active())
	_, ok = d.Move(minimap.Point{X: 0})
	assert.False(t, ok)
	assert.Len(t, ctrl.set, 2)
}

func TestDragInactiveWhenCollapsed(t *testing.T) {
	ctrl := &viewportRecorder{vp: flowcanvas.DefaultViewport}
	d := minimap.NewDrag(ctrl)
	l := minimap.NewLayout([]flowcanvas.Node{at("a", 0, 0)}, false)

	assert.False(t, d.Begin(l, minimap.Point{}))
	_, ok := d.Move(minimap.Point{X: 10})
	assert.False(t, ok)
	assert.Empty(t, ctrl.set)
}
