package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Version is the current entry format version.
// Increment when making breaking changes to the entry structure.
const Version = 1

// Entry is the envelope every typed slot is written in. Checksum covers
// Payload so truncated or hand-edited slots are detected on recovery.
type Entry struct {
	Version   int             `json:"version"`
	GraphID   string          `json:"graph_id"`
	Slot      string          `json:"slot"`
	Timestamp time.Time       `json:"timestamp"`
	Count     int             `json:"count"`
	Checksum  uint64          `json:"checksum"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEntry wraps an already serialized payload holding count items.
func NewEntry(graphID, slot string, count int, payload []byte) *Entry {
	return &Entry{
		Version:   Version,
		GraphID:   graphID,
		Slot:      slot,
		Timestamp: time.Now().UTC(),
		Count:     count,
		Checksum:  xxhash.Sum64(payload),
		Payload:   payload,
	}
}

// Marshal serializes an entry to JSON.
func (e *Entry) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Verify checks the version and checksum.
func (e *Entry) Verify() error {
	if e.Version != Version {
		return fmt.Errorf("%w: version %d, want %d", ErrCorrupt, e.Version, Version)
	}
	if sum := xxhash.Sum64(e.Payload); sum != e.Checksum {
		return fmt.Errorf("%w: checksum %x, want %x", ErrCorrupt, sum, e.Checksum)
	}
	return nil
}

// Unmarshal deserializes and verifies an entry.
func Unmarshal(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := e.Verify(); err != nil {
		return nil, err
	}
	return &e, nil
}
