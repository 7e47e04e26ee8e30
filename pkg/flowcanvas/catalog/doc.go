// Package catalog describes the node kinds the editor offers.
//
// A Kind carries what the palette, the drop path and the minimap need to
// know about a node type: its default label and size, its minimap color,
// the data keys it may carry and its connection limits.
//
//	c := catalog.Default()
//	kind, ok := c.Get(flowcanvas.NodeDecision)
//	if ok {
//	    data := c.FilterData(kind.Type, payload)
//	    // ...
//	}
//
// Lint checks a graph against the connection limits. It reports problems
// and never changes the graph:
//
//	for _, issue := range c.Lint(store.State()) {
//	    fmt.Println(issue)
//	}
//
// All Catalog methods are safe for concurrent use.
package catalog
