// Package guard protects a graph store against accidental loss of data.
//
// A Guard sits in front of flowcanvas.Store for node replacement. When a
// replacement would take a non-empty graph to zero nodes, the Guard backs
// the current graph up to the durable cache and refuses the change unless
// the caller holds a one-shot token from Authorize:
//
//	g := guard.New(store, cacheStore, guard.WithLogger(logger))
//	defer g.Close()
//	g.Start(ctx)
//
//	err := g.ReplaceNodes(nil) // refused, graph backed up
//	err = g.ReplaceNodes(nil, guard.WithToken(g.Authorize())) // allowed
//
// The Guard also keeps the last non-empty graph in memory, restores it
// with RecoverEmergency when the store turns up empty, and runs a
// periodic sweep that reports (never repairs) graphs that emptied without
// leaving a backup.
package guard
