package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/config"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/editor"
)

var errNoGraph = errors.New("no flow id: pass --graph or set graph_id")

func newLoadCmd(root *rootOptions) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Open a flow the way the editor does and report what was loaded",
		Long: `load opens the flow named by --graph: from the remote API when one is
configured, else from the cache, else as a new flow. With --save the loaded
graph is written back in the current document format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.settings()
			if err != nil {
				return err
			}
			if s.GraphID == "" {
				return errNoGraph
			}
			s.Autosave.Enabled = false

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runLoad(ctx, cmd, s, save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save the loaded graph back to the remote")
	return cmd
}

func runLoad(ctx context.Context, cmd *cobra.Command, s config.Settings, save bool) error {
	w := cmd.OutOrStdout()
	sess, err := editor.Open(s, editor.WithLogger(s.Log.Logger(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	defer sess.Close()
	sess.OnMessage(func(m editor.Message) { printMessage(w, m) })

	res, err := sess.Load(ctx)
	if err != nil {
		return err
	}

	heading(w, sess.Name())
	table(w, []string{"SOURCE", "NODES", "EDGES", "DROPPED NODES", "DROPPED EDGES"}, [][]string{{
		string(res.Source),
		fmt.Sprint(res.Nodes),
		fmt.Sprint(res.Edges),
		fmt.Sprint(res.DroppedNodes),
		fmt.Sprint(res.DroppedEdges),
	}})
	if res.EdgesFromCache {
		fmt.Fprintln(w, warn.Sprint("⚠ ")+"edges restored from the local cache")
	}

	if !save {
		return nil
	}
	if err := sess.Save(ctx); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	fmt.Fprintf(w, "%s saved %s\n", okIcon(true), sess.GraphID())
	return nil
}
