// Package minimap projects a graph onto a small fixed-size canvas.
//
// A Layout holds the single affine map from graph space to minimap
// pixels. Every node, edge and the viewport indicator go through it, so
// edges stay anchored to their nodes at any scale:
//
//	l := minimap.NewLayout(store.Nodes(), true)
//	p := l.Transform(node.Position)
//	r := l.Indicator(viewport, canvasSize)
//
// Drag turns pointer motion inside an expanded minimap into pan commands
// for the main canvas:
//
//	d := minimap.NewDrag(controller)
//	d.Begin(l, pointer)
//	d.Move(next) // controller.SetViewport called with the panned viewport
//	d.End()
//
// Render rasterises a layout with fogleman/gg, and Watch tells a renderer
// when the graph changed enough to be worth repainting.
package minimap
