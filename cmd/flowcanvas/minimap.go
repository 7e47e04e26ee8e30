package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/catalog"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/minimap"
)

func newMinimapCmd() *cobra.Command {
	var (
		out      string
		expanded bool
		width    float64
		height   float64
	)

	cmd := &cobra.Command{
		Use:   "minimap <file|->",
		Short: "Render a flow document's minimap as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			d := decodeDocument(doc)

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			layout := minimap.NewLayout(d.state.Nodes, expanded)
			opts := []minimap.RenderOption{minimap.WithPalette(catalog.Default().Palette())}
			if width > 0 && height > 0 {
				opts = append(opts, minimap.WithIndicator(flowcanvas.DefaultViewport, flowcanvas.Size{Width: width, Height: height}))
			}
			if err := minimap.RenderPNG(f, layout, d.state, opts...); err != nil {
				_ = f.Close()
				return fmt.Errorf("render minimap: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s (%d nodes, %d edges)\n",
				okIcon(true), out, len(d.state.Nodes), len(d.state.Edges))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "minimap.png", "output file")
	cmd.Flags().BoolVar(&expanded, "expanded", false, "render the expanded minimap")
	cmd.Flags().Float64Var(&width, "canvas-width", 0, "outline the region a canvas this wide shows")
	cmd.Flags().Float64Var(&height, "canvas-height", 0, "outline the region a canvas this tall shows")
	return cmd
}
