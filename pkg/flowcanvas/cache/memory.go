package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory cache store. Data is lost when the process
// exits. With a quota it behaves like a browser storage area: a write that
// would push the total size over the limit fails with ErrQuotaExceeded.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]storedSlot // graphID -> slot -> value
	used   int64
	quota  int64
	closed bool
}

type storedSlot struct {
	data      []byte
	timestamp time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithQuota limits the total size of stored slots in bytes.
// Default: unlimited
func WithQuota(bytes int64) MemoryOption {
	return func(m *MemoryStore) {
		m.quota = bytes
	}
}

// NewMemoryStore creates a new in-memory cache store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		data: make(map[string]map[string]storedSlot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save implements Store.
func (m *MemoryStore) Save(graphID, slot string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	prev := int64(len(m.data[graphID][slot].data))
	next := m.used - prev + int64(len(data))
	if m.quota > 0 && next > m.quota {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, next, m.quota)
	}

	if m.data[graphID] == nil {
		m.data[graphID] = make(map[string]storedSlot)
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	m.data[graphID][slot] = storedSlot{
		data:      stored,
		timestamp: time.Now().UTC(),
	}
	m.used = next
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(graphID, slot string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	s, ok := m.data[graphID][slot]
	if !ok {
		return nil, ErrNotFound
	}

	result := make([]byte, len(s.data))
	copy(result, s.data)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List(graphID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	graph, ok := m.data[graphID]
	if !ok {
		return nil, nil
	}

	infos := make([]Info, 0, len(graph))
	for slot, s := range graph {
		infos = append(infos, Info{
			GraphID:   graphID,
			Slot:      slot,
			Timestamp: s.timestamp,
			Size:      int64(len(s.data)),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Slot < infos[j].Slot
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(graphID, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if graph, ok := m.data[graphID]; ok {
		m.used -= int64(len(graph[slot].data))
		delete(graph, slot)
		if len(graph) == 0 {
			delete(m.data, graphID)
		}
	}
	return nil
}

// DeleteGraph implements Store.
func (m *MemoryStore) DeleteGraph(graphID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	for _, s := range m.data[graphID] {
		m.used -= int64(len(s.data))
	}
	delete(m.data, graphID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	m.used = 0
	return nil
}

// Len returns the total number of slots across all graphs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, graph := range m.data {
		count += len(graph)
	}
	return count
}

// Used returns the total size of stored slots in bytes.
func (m *MemoryStore) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}
