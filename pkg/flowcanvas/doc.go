/*
Package flowcanvas is the state core of a visual editor for
conversational-flow bots.

# Overview

Users place typed nodes (start, message, decision, action, option, end) on
a canvas and connect them with directed edges. This package owns the
authoritative in-memory graph: nodes, edges, a bounded undo/redo history
and typed change listeners. Sub-packages build on it:

  - reconcile: resolves edge endpoints across identifier namespaces
  - wire: the persistence API's JSON shapes and the save adapter
  - guard: refuses destructive replacements and recovers lost graphs
  - cache: durable per-graph backup slots (memory or SQLite)
  - minimap: the miniature projection and viewport drag
  - dragdrop: turns palette drops into nodes
  - autosave, remote, editor: the debounced save pipeline and session

# Basic Usage

	store := flowcanvas.NewStore(flowcanvas.WithGraphID("flow-1"))
	defer store.Close()

	sub := store.OnChange(func(ctx context.Context, c flowcanvas.Change) {
	    fmt.Println("graph changed:", c.Reason, len(c.State.Nodes))
	})
	defer sub.Unsubscribe()

	_ = store.AddNode(flowcanvas.Node{ID: "n1", Type: flowcanvas.NodeStart})
	_ = store.AddNode(flowcanvas.Node{ID: "n2", Type: flowcanvas.NodeMessage})
	edge, ok := store.Connect(flowcanvas.Connection{Source: "n1", Target: "n2"})

	store.Undo() // removes the edge again

# Invariants

Every edge in the store references two existing nodes, and there is at
most one edge per ordered (source, target) pair. Deleting a node removes
its incident edges in the same history step. Reads return deep copies;
callers never share memory with the store.

# Notifications

Listeners registered with OnChange and OnResync run on their own
goroutines after the mutation has committed, in mutation order. A
listener may call back into the store.
*/
package flowcanvas
