package flowcanvas

import "errors"

// Sentinel errors for graph mutations.
var (
	// ErrInvalidNode indicates a node without an id or with an unknown type.
	ErrInvalidNode = errors.New("invalid node")

	// ErrDuplicateNode indicates a node id that already exists in the graph.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrNodeNotFound indicates an operation referenced a missing node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("graph store closed")
)
