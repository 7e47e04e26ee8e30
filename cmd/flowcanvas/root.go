package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/config"
)

type rootOptions struct {
	configPath string
	graphID    string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "flowcanvas",
		Short: "Work with conversational flow documents",
		Long: `flowcanvas loads flow documents the way the editor does: edges are
reconciled against the nodes, invalid nodes are dropped and the result is
checked against the node catalog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "settings file (.toml, .yaml or .json)")
	cmd.PersistentFlags().StringVarP(&opts.graphID, "graph", "g", "", "flow id, overrides graph_id from the settings file")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newInspectCmd(),
		newMinimapCmd(),
		newLoadCmd(opts),
		newRecoverCmd(opts),
		newServeCmd(),
	)
	return cmd
}

// settings loads the settings file and applies flag overrides.
func (o *rootOptions) settings() (config.Settings, error) {
	s, err := config.LoadSettings(o.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	if o.graphID != "" {
		s.GraphID = o.graphID
	}
	return s, nil
}
