// Package cache provides the durable client-side cache graphs are backed
// up to between saves and across restarts.
//
// A cache holds whole-value slots keyed by (graphID, slot). Writes replace
// the slot; there are no partial writes, so a reader sees either the old
// value or the new one.
package cache

import (
	"errors"
	"time"
)

// Well-known slots.
const (
	// SlotNodes holds the last known good node array of a graph.
	SlotNodes = "nodes"

	// SlotEdges holds the last known good edge array of a graph.
	SlotEdges = "edges"
)

// Store persists cache slots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save replaces the slot for (graphID, slot).
	Save(graphID, slot string, data []byte) error

	// Load retrieves a slot.
	// Returns ErrNotFound if the slot doesn't exist.
	Load(graphID, slot string) ([]byte, error)

	// List returns metadata for every slot of a graph, ordered by slot name.
	// Returns an empty slice (not error) if the graph has no slots.
	List(graphID string) ([]Info, error)

	// Delete removes one slot.
	// Returns nil if the slot doesn't exist.
	Delete(graphID, slot string) error

	// DeleteGraph removes every slot of a graph.
	// Returns nil if the graph has no slots.
	DeleteGraph(graphID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info describes a slot without loading it.
type Info struct {
	GraphID   string
	Slot      string
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for cache operations.
var (
	// ErrNotFound indicates a slot doesn't exist.
	ErrNotFound = errors.New("cache slot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("cache store closed")

	// ErrQuotaExceeded indicates a write would exceed the store's size limit.
	ErrQuotaExceeded = errors.New("cache quota exceeded")

	// ErrCorrupt indicates a slot failed its integrity check.
	ErrCorrupt = errors.New("cache entry corrupt")
)
