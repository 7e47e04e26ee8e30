// Package reconcile resolves stored edge endpoints to the ids of live nodes.
//
// Graphs written by different client versions refer to nodes through
// several identifier spaces: locally generated ids, ids with or without a
// "node-" prefix, server-assigned numeric ids kept in node data, and in
// the worst case only the position an edge was attached at. A Reconciler
// runs each endpoint through an ordered Chain of Strategy values and keeps
// the first hit:
//
//	r := reconcile.New(reconcile.WithLogger(logger))
//	res := r.Reconcile(doc.Edges, nodes)
//	if n := res.Unresolved(); n > 0 {
//	    // tell the user n connections could not be restored
//	}
//
// Output edges always reference existing nodes and never repeat an
// ordered (source, target) pair. Edges that cannot be placed are reported
// in Result.Drops, never returned as errors.
package reconcile
