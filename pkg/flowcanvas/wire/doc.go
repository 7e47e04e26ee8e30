// Package wire defines the shapes graphs take on the way to and from the
// remote persistence API and the durable cache.
//
// Loads arrive as RawEdge and RawNode values, which tolerate every
// identifier form older clients and the server have written: string or
// numeric ids, null handles, legacy source_id/target_id fields and ids
// stashed in data. Saves leave as SerializedEdge and SerializedNode,
// produced by AdaptEdges and AdaptNodes:
//
//	doc := wire.FlowDocument{
//	    Name:  "support bot",
//	    Nodes: wire.AdaptNodes(state.Nodes),
//	    Edges: wire.AdaptEdges(state.Edges, wire.NodeIDMap(state.Nodes)),
//	}
//
// AdaptEdges is the inverse of reconciliation: feeding its output back
// through reconcile.Reconciler yields the same edges.
package wire
