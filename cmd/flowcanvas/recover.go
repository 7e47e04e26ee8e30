package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

var errNoCachePath = errors.New("no cache file: pass --cache or set [cache] path")

func newRecoverCmd(root *rootOptions) *cobra.Command {
	var (
		cachePath string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "recover [graph-id]",
		Short: "List flows in a cache file or export one as a flow document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.settings()
			if err != nil {
				return err
			}
			if cachePath == "" {
				cachePath = s.Cache.Path
			}
			if cachePath == "" {
				return errNoCachePath
			}

			store, err := cache.NewSQLiteStore(cachePath)
			if err != nil {
				return err
			}
			defer store.Close()

			graphID := s.GraphID
			if len(args) == 1 {
				graphID = args[0]
			}
			if graphID == "" {
				return listCached(cmd, store)
			}
			return exportCached(cmd, store, graphID, out)
		},
	}
	cmd.Flags().StringVar(&cachePath, "cache", "", "SQLite cache file, overrides [cache] path")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "where to write the exported document")
	return cmd
}

func listCached(cmd *cobra.Command, store *cache.SQLiteStore) error {
	ids, err := store.Graphs()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintln(w, subtle.Sprint("cache is empty"))
		return nil
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		row := []string{id, "-", "-", "-", okIcon(true)}
		if _, entry, err := cache.LoadNodes(store, id); err == nil {
			row[1] = strconv.Itoa(entry.Count)
			row[3] = entry.Timestamp.Local().Format("2006-01-02 15:04:05")
		} else if !errors.Is(err, cache.ErrNotFound) {
			row[4] = okIcon(false)
		}
		if _, entry, err := cache.LoadEdges(store, id); err == nil {
			row[2] = strconv.Itoa(entry.Count)
		} else if !errors.Is(err, cache.ErrNotFound) {
			row[4] = okIcon(false)
		}
		rows = append(rows, row)
	}
	table(w, []string{"GRAPH", "NODES", "EDGES", "SAVED", "OK"}, rows)
	return nil
}

func exportCached(cmd *cobra.Command, store *cache.SQLiteStore, graphID, out string) error {
	nodes, _, err := cache.LoadNodes(store, graphID)
	if errors.Is(err, cache.ErrNotFound) {
		return fmt.Errorf("no cached nodes for %s", graphID)
	}
	if err != nil {
		return err
	}
	edges, _, err := cache.LoadEdges(store, graphID)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		fmt.Fprintln(cmd.ErrOrStderr(), warn.Sprint("⚠ ")+"cached edges unreadable, exporting nodes only: "+err.Error())
		edges = nil
	}

	doc := wire.FlowDocument{
		Name:  graphID,
		Nodes: wire.RawNodes(wire.AdaptNodes(nodes)),
		Edges: edges,
	}
	if doc.Edges == nil {
		doc.Edges = []wire.RawEdge{}
	}

	w := cmd.OutOrStdout()
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if out != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s exported %d nodes and %d edges to %s\n", okIcon(true), len(nodes), len(doc.Edges), out)
	}
	return nil
}
