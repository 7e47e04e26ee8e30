package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/catalog"
	fcerrors "github.com/randalmurphal/flowcanvas/pkg/flowcanvas/errors"
)

func newInspectCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "inspect <file|->",
		Short: "Decode a flow document, reconcile its edges and lint the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			d := decodeDocument(doc)
			issues := catalog.Default().Lint(d.state)

			w := cmd.OutOrStdout()
			title := d.name
			if title == "" {
				title = args[0]
			}
			heading(w, title)
			fmt.Fprintf(w, "  nodes  %d loaded, %d dropped\n", len(d.state.Nodes), d.report.Dropped())
			fmt.Fprintf(w, "  edges  %d placed, %d dropped\n", len(d.state.Edges), len(d.result.Drops))

			if len(d.result.Resolutions) > 0 {
				fmt.Fprintln(w)
				heading(w, "Resolutions")
				names := make([]string, 0, len(d.result.Resolutions))
				for name := range d.result.Resolutions {
					names = append(names, name)
				}
				sort.Strings(names)
				rows := make([][]string, len(names))
				for i, name := range names {
					rows[i] = []string{name, strconv.Itoa(d.result.Resolutions[name])}
				}
				table(w, []string{"STRATEGY", "ENDPOINTS"}, rows)
			}

			if len(d.result.Drops) > 0 {
				fmt.Fprintln(w)
				heading(w, "Dropped edges")
				rows := make([][]string, len(d.result.Drops))
				for i, drop := range d.result.Drops {
					cat := fcerrors.Categorize(drop.Err())
					rows[i] = []string{strconv.Itoa(drop.Index), drop.EdgeID, cat.String(), string(drop.Reason), drop.Value}
				}
				table(w, []string{"INDEX", "ID", "CATEGORY", "REASON", "VALUE"}, rows)
			}

			fmt.Fprintln(w)
			if len(issues) == 0 {
				fmt.Fprintf(w, "%s connection limits satisfied\n", okIcon(true))
				return nil
			}
			heading(w, "Lint")
			rows := make([][]string, len(issues))
			for i, is := range issues {
				rows[i] = []string{is.NodeID, string(is.Type), is.Message}
			}
			table(w, []string{"NODE", "TYPE", "ISSUE"}, rows)
			if strict {
				return fmt.Errorf("%d lint issues", len(issues))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when lint finds issues")
	return cmd
}
