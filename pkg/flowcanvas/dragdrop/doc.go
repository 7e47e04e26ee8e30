// Package dragdrop turns palette drops into graph nodes.
//
// A drop carries a payload naming a node kind, in one of three forms:
//
//	{"nodeInfo": {"type": "message", "data": {"label": "Hi"}}}
//	{"type": "message", "data": {"label": "Hi"}}
//	message
//
// The payload is the one place untrusted structured data enters the
// graph. It is validated against the catalog before anything is
// inserted; a rejected payload leaves the store untouched and returns a
// Malformed error.
//
//	in := dragdrop.New(store)
//	node, err := in.Ingest(payload, pointer, canvasBounds, viewport)
package dragdrop
