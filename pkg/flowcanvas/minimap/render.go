package minimap

import (
	"image"
	"io"

	"github.com/fogleman/gg"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/catalog"
)

// Default render colors.
const (
	DefaultBackground = "#1A1A2E"
	DefaultEdgeColor  = "#00E0FF"
	IndicatorColor    = "#00E0FF"
)

type renderConfig struct {
	palette    map[flowcanvas.NodeType]string
	background string
	edgeColor  string
	viewport   *flowcanvas.Viewport
	canvas     flowcanvas.Size
}

// RenderOption configures Render.
type RenderOption func(*renderConfig)

// WithPalette sets node colors by type. Types missing from p use
// catalog.FallbackColor.
func WithPalette(p map[flowcanvas.NodeType]string) RenderOption {
	return func(c *renderConfig) {
		if p != nil {
			c.palette = p
		}
	}
}

// WithBackground sets the background color as a hex string.
func WithBackground(hex string) RenderOption {
	return func(c *renderConfig) {
		c.background = hex
	}
}

// WithIndicator draws the main canvas's visible region. Indicators are
// only drawn on expanded layouts.
func WithIndicator(vp flowcanvas.Viewport, canvas flowcanvas.Size) RenderOption {
	return func(c *renderConfig) {
		c.viewport = &vp
		c.canvas = canvas
	}
}

// Render rasterises st onto the layout's frame: edges first, then nodes,
// then the viewport indicator.
func Render(l Layout, st flowcanvas.State, opts ...RenderOption) image.Image {
	return draw(l, st, opts).Image()
}

// RenderPNG renders st and writes it to w as PNG.
func RenderPNG(w io.Writer, l Layout, st flowcanvas.State, opts ...RenderOption) error {
	return draw(l, st, opts).EncodePNG(w)
}

func draw(l Layout, st flowcanvas.State, opts []RenderOption) *gg.Context {
	cfg := renderConfig{
		palette:    catalog.Default().Palette(),
		background: DefaultBackground,
		edgeColor:  DefaultEdgeColor,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dc := gg.NewContext(int(l.Frame.Width), int(l.Frame.Height))
	if cfg.background != "" {
		dc.SetHexColor(cfg.background)
		dc.Clear()
	}

	dc.SetHexColor(cfg.edgeColor)
	dc.SetLineCapRound()
	if l.Expanded {
		dc.SetLineWidth(2.5)
	} else {
		dc.SetLineWidth(1.8)
	}
	for _, p := range l.Edges(st.Nodes, st.Edges) {
		dc.MoveTo(p.From.X, p.From.Y)
		if p.Curved {
			dc.QuadraticTo(p.Control.X, p.Control.Y, p.To.X, p.To.Y)
		} else {
			dc.LineTo(p.To.X, p.To.Y)
		}
		dc.Stroke()
	}

	radius := 1.5
	if l.Expanded {
		radius = 2
	}
	for _, n := range st.Nodes {
		color, ok := cfg.palette[n.Type]
		if !ok {
			color = catalog.FallbackColor
		}
		r := l.NodeRect(n)
		dc.SetHexColor(color)
		dc.DrawRoundedRectangle(r.X, r.Y, r.Width, r.Height, radius)
		dc.Fill()
	}

	if cfg.viewport != nil && l.Expanded {
		r := l.Indicator(*cfg.viewport, cfg.canvas)
		dc.SetRGBA255(0, 224, 255, 26)
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		dc.Fill()
		dc.SetHexColor(IndicatorColor)
		dc.SetLineWidth(1.5)
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		dc.Stroke()
	}
	return dc
}
