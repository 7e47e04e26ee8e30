package cache_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

func sampleNodes() []flowcanvas.Node {
	return []flowcanvas.Node{
		{ID: "a", Type: flowcanvas.NodeStart, Position: flowcanvas.Position{X: 1, Y: 2}, Data: map[string]any{"label": "A <start>"}},
		{ID: "b", Type: flowcanvas.NodeEnd, Size: flowcanvas.Size{Width: 120, Height: 50}, Data: map[string]any{"label": "B"}},
	}
}

func TestNodesRoundTrip(t *testing.T) {
	store := cache.NewMemoryStore()
	defer store.Close()

	n, err := cache.SaveNodes(store, "flow-1", sampleNodes())
	require.NoError(t, err)
	assert.Positive(t, n)

	nodes, entry, err := cache.LoadNodes(store, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, sampleNodes(), nodes)
	assert.Equal(t, 2, entry.Count)
	assert.Equal(t, cache.SlotNodes, entry.Slot)
	assert.Equal(t, "flow-1", entry.GraphID)
}

func TestEdgesRoundTrip(t *testing.T) {
	store := cache.NewMemoryStore()
	defer store.Close()

	edges := []flowcanvas.Edge{{ID: "e1", Source: "a", Target: "b", SourceHandle: "default"}}
	_, err := cache.SaveEdges(store, "flow-1", edges)
	require.NoError(t, err)

	raw, entry, err := cache.LoadEdges(store, "flow-1")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, 1, entry.Count)
	assert.Equal(t, wire.ID("e1"), raw[0].ID)
	assert.Equal(t, wire.ID("a"), raw[0].Source)
	assert.Equal(t, wire.ID("a"), raw[0].SourceID)
}

func TestLoadNodesMissing(t *testing.T) {
	store := cache.NewMemoryStore()
	defer store.Close()

	_, _, err := cache.LoadNodes(store, "flow-1")
	assert.ErrorIs(t, err, cache.ErrNotFound)

	ok, err := cache.HasNodes(store, "flow-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadNodesCorrupt(t *testing.T) {
	store := cache.NewMemoryStore()
	defer store.Close()

	_, err := cache.SaveNodes(store, "flow-1", sampleNodes())
	require.NoError(t, err)

	data, err := store.Load("flow-1", cache.SlotNodes)
	require.NoError(t, err)
	var e cache.Entry
	require.NoError(t, json.Unmarshal(data, &e))
	e.Payload = json.RawMessage(`[{"id":"tampered"}]`)
	tampered, err := json.Marshal(e)
	require.NoError(t, err)
	require.NoError(t, store.Save("flow-1", cache.SlotNodes, tampered))

	_, _, err = cache.LoadNodes(store, "flow-1")
	assert.ErrorIs(t, err, cache.ErrCorrupt)

	ok, err := cache.HasNodes(store, "flow-1")
	require.NoError(t, err)
	assert.False(t, ok, "corrupt entries do not count as a backup")

	require.NoError(t, store.Save("flow-1", cache.SlotNodes, []byte("not json")))
	_, _, err = cache.LoadNodes(store, "flow-1")
	assert.ErrorIs(t, err, cache.ErrCorrupt)
}

func TestHasNodes(t *testing.T) {
	store := cache.NewMemoryStore()
	defer store.Close()

	_, err := cache.SaveNodes(store, "flow-1", nil)
	require.NoError(t, err)
	ok, err := cache.HasNodes(store, "flow-1")
	require.NoError(t, err)
	assert.False(t, ok, "an empty node array is not a backup")

	_, err = cache.SaveNodes(store, "flow-1", sampleNodes())
	require.NoError(t, err)
	ok, err = cache.HasNodes(store, "flow-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveNodesQuota(t *testing.T) {
	store := cache.NewMemoryStore(cache.WithQuota(16))
	defer store.Close()

	_, err := cache.SaveNodes(store, "flow-1", sampleNodes())
	assert.ErrorIs(t, err, cache.ErrQuotaExceeded)
}

func TestEntryVerify(t *testing.T) {
	e := cache.NewEntry("flow-1", cache.SlotNodes, 0, []byte(`[]`))
	require.NoError(t, e.Verify())

	data, err := e.Marshal()
	require.NoError(t, err)
	back, err := cache.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, e.Checksum, back.Checksum)

	back.Version = cache.Version + 1
	assert.ErrorIs(t, back.Verify(), cache.ErrCorrupt)
}
