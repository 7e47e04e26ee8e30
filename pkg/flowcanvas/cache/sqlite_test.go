package cache_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
)

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	store1, err := cache.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Save("flow-1", cache.SlotNodes, []byte("persistent")))
	require.NoError(t, store1.Close())

	store2, err := cache.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	data, err := store2.Load("flow-1", cache.SlotNodes)
	require.NoError(t, err)
	assert.Equal(t, []byte("persistent"), data)
}

func TestSQLiteStore_Quota(t *testing.T) {
	store, err := cache.NewSQLiteStore(":memory:", cache.WithSQLiteQuota(10))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save("flow-1", cache.SlotNodes, []byte("123456")))
	err = store.Save("flow-1", cache.SlotEdges, []byte("123456"))
	assert.ErrorIs(t, err, cache.ErrQuotaExceeded)

	// replacing a slot only counts its new size
	require.NoError(t, store.Save("flow-1", cache.SlotNodes, []byte("1234567890")))
}

func TestSQLiteStore_Timestamps(t *testing.T) {
	store, err := cache.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	before := time.Now().Add(-time.Second)
	require.NoError(t, store.Save("flow-1", cache.SlotNodes, []byte("x")))

	infos, err := store.List("flow-1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].Timestamp.After(before))
	assert.Equal(t, "flow-1", infos[0].GraphID)

	infos, err = store.List("other")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := cache.NewSQLiteStore("/nonexistent/path/db.sqlite")
	assert.Error(t, err)
}

func TestSQLiteStore_CloseIdempotent(t *testing.T) {
	store, err := cache.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_Graphs(t *testing.T) {
	store, err := cache.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save("flow-b", cache.SlotNodes, []byte("1")))
	require.NoError(t, store.Save("flow-a", cache.SlotNodes, []byte("2")))
	require.NoError(t, store.Save("flow-a", cache.SlotEdges, []byte("3")))

	ids, err := store.Graphs()
	require.NoError(t, err)
	assert.Equal(t, []string{"flow-a", "flow-b"}, ids)
}

func TestSQLiteStore_LargeData(t *testing.T) {
	store, err := cache.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	largeData := make([]byte, 1024*1024)
	for i := range largeData {
		largeData[i] = byte(i % 256)
	}

	require.NoError(t, store.Save("flow-1", "large", largeData))

	loaded, err := store.Load("flow-1", "large")
	require.NoError(t, err)
	assert.Equal(t, largeData, loaded)

	infos, err := store.List("flow-1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(1024*1024), infos[0].Size)
}
