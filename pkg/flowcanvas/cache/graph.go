package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

// SaveNodes writes nodes to the nodes slot of graphID and returns the
// number of bytes written.
func SaveNodes(s Store, graphID string, nodes []flowcanvas.Node) (int, error) {
	if nodes == nil {
		nodes = []flowcanvas.Node{}
	}
	return saveEntry(s, graphID, SlotNodes, len(nodes), nodes)
}

// LoadNodes reads the nodes slot of graphID.
// Returns ErrNotFound when absent and ErrCorrupt when the entry fails
// verification.
func LoadNodes(s Store, graphID string) ([]flowcanvas.Node, *Entry, error) {
	e, err := loadEntry(s, graphID, SlotNodes)
	if err != nil {
		return nil, nil, err
	}
	var nodes []flowcanvas.Node
	if err := json.Unmarshal(e.Payload, &nodes); err != nil {
		return nil, nil, fmt.Errorf("%w: decode nodes: %v", ErrCorrupt, err)
	}
	return nodes, e, nil
}

// SaveEdges writes edges to the edges slot of graphID in the save wire
// shape, so a later load can run them through reconciliation.
func SaveEdges(s Store, graphID string, edges []flowcanvas.Edge) (int, error) {
	serialized := wire.AdaptEdges(edges, nil)
	return saveEntry(s, graphID, SlotEdges, len(serialized), serialized)
}

// LoadEdges reads the edges slot of graphID as raw edges.
func LoadEdges(s Store, graphID string) ([]wire.RawEdge, *Entry, error) {
	e, err := loadEntry(s, graphID, SlotEdges)
	if err != nil {
		return nil, nil, err
	}
	var edges []wire.RawEdge
	if err := json.Unmarshal(e.Payload, &edges); err != nil {
		return nil, nil, fmt.Errorf("%w: decode edges: %v", ErrCorrupt, err)
	}
	return edges, e, nil
}

// HasNodes reports whether graphID has a readable, non-empty nodes slot.
// Missing and corrupt slots both count as absent.
func HasNodes(s Store, graphID string) (bool, error) {
	_, e, err := LoadNodes(s, graphID)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorrupt):
		return false, nil
	case err != nil:
		return false, err
	}
	return e.Count > 0, nil
}

func saveEntry(s Store, graphID, slot string, count int, v any) (int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", slot, err)
	}
	data, err := NewEntry(graphID, slot, count, payload).Marshal()
	if err != nil {
		return 0, fmt.Errorf("encode %s entry: %w", slot, err)
	}
	if err := s.Save(graphID, slot, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

func loadEntry(s Store, graphID, slot string) (*Entry, error) {
	data, err := s.Load(graphID, slot)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
