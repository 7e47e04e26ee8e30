package cache_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
)

// backends lists every Store implementation the contract runs against.
var backends = map[string]func(t *testing.T) cache.Store{
	"memory": func(t *testing.T) cache.Store {
		return cache.NewMemoryStore()
	},
	"memory-quota": func(t *testing.T) cache.Store {
		return cache.NewMemoryStore(cache.WithQuota(1 << 20))
	},
	"sqlite": func(t *testing.T) cache.Store {
		s, err := cache.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return s
	},
	"sqlite-quota": func(t *testing.T) cache.Store {
		s, err := cache.NewSQLiteStore(":memory:", cache.WithSQLiteQuota(1<<20))
		require.NoError(t, err)
		return s
	},
}

func mustLoad(t *testing.T, s cache.Store, graphID, slot string) []byte {
	t.Helper()
	data, err := s.Load(graphID, slot)
	require.NoError(t, err)
	return data
}

var contract = []struct {
	name string
	run  func(t *testing.T, s cache.Store)
}{
	{"round trip", func(t *testing.T, s cache.Store) {
		require.NoError(t, s.Save("flow-1", cache.SlotNodes, []byte(`[{"id":"a"}]`)))
		assert.Equal(t, []byte(`[{"id":"a"}]`), mustLoad(t, s, "flow-1", cache.SlotNodes))
	}},
	{"missing slot", func(t *testing.T, s cache.Store) {
		_, err := s.Load("flow-missing", cache.SlotNodes)
		assert.ErrorIs(t, err, cache.ErrNotFound)
	}},
	{"last write wins", func(t *testing.T, s cache.Store) {
		require.NoError(t, s.Save("flow-1", cache.SlotNodes, []byte("first")))
		require.NoError(t, s.Save("flow-1", cache.SlotNodes, []byte("second")))
		assert.Equal(t, []byte("second"), mustLoad(t, s, "flow-1", cache.SlotNodes))
	}},
	{"nil payload", func(t *testing.T, s cache.Store) {
		require.NoError(t, s.Save("flow-1", cache.SlotEdges, nil))
		assert.Empty(t, mustLoad(t, s, "flow-1", cache.SlotEdges))
	}},
	{"list unknown graph", func(t *testing.T, s cache.Store) {
		infos, err := s.List("flow-missing")
		require.NoError(t, err)
		assert.Empty(t, infos)
	}},
	{"list sorted by slot", func(t *testing.T, s cache.Store) {
		for slot, data := range map[string]string{"nodes": "n", "backup": "bb", "edges": "eee"} {
			require.NoError(t, s.Save("flow-1", slot, []byte(data)))
		}

		infos, err := s.List("flow-1")
		require.NoError(t, err)
		require.Len(t, infos, 3)

		var slots []string
		var sizes []int64
		for _, info := range infos {
			slots = append(slots, info.Slot)
			sizes = append(sizes, info.Size)
			assert.Equal(t, "flow-1", info.GraphID)
			assert.False(t, info.Timestamp.IsZero())
		}
		assert.Equal(t, []string{"backup", "edges", "nodes"}, slots)
		assert.Equal(t, []int64{2, 3, 1}, sizes)
	}},
	{"delete slot", func(t *testing.T, s cache.Store) {
		require.NoError(t, s.Save("flow-1", cache.SlotNodes, []byte("data")))
		require.NoError(t, s.Delete("flow-1", cache.SlotNodes))
		require.NoError(t, s.Delete("flow-1", cache.SlotNodes))

		_, err := s.Load("flow-1", cache.SlotNodes)
		assert.ErrorIs(t, err, cache.ErrNotFound)
	}},
	{"delete graph", func(t *testing.T, s cache.Store) {
		require.NoError(t, s.Save("flow-1", cache.SlotNodes, []byte("a")))
		require.NoError(t, s.Save("flow-1", cache.SlotEdges, []byte("b")))
		require.NoError(t, s.Save("flow-2", cache.SlotNodes, []byte("other")))

		require.NoError(t, s.DeleteGraph("flow-1"))
		require.NoError(t, s.DeleteGraph("flow-missing"))

		infos, err := s.List("flow-1")
		require.NoError(t, err)
		assert.Empty(t, infos)
		assert.Equal(t, []byte("other"), mustLoad(t, s, "flow-2", cache.SlotNodes))
	}},
	{"graphs are isolated", func(t *testing.T, s cache.Store) {
		require.NoError(t, s.Save("flow-1", cache.SlotNodes, []byte("one")))
		require.NoError(t, s.Save("flow-2", cache.SlotNodes, []byte("two")))
		assert.Equal(t, []byte("one"), mustLoad(t, s, "flow-1", cache.SlotNodes))
		assert.Equal(t, []byte("two"), mustLoad(t, s, "flow-2", cache.SlotNodes))
	}},
	{"stored bytes are not aliased", func(t *testing.T, s cache.Store) {
		in := []byte("original data")
		require.NoError(t, s.Save("flow-1", cache.SlotNodes, in))
		in[0] = 'X'

		out := mustLoad(t, s, "flow-1", cache.SlotNodes)
		assert.Equal(t, []byte("original data"), out)
		out[0] = 'Y'
		assert.Equal(t, []byte("original data"), mustLoad(t, s, "flow-1", cache.SlotNodes))
	}},
	{"closed store", func(t *testing.T, s cache.Store) {
		require.NoError(t, s.Close())

		assert.ErrorIs(t, s.Save("flow-1", cache.SlotNodes, []byte("x")), cache.ErrStoreClosed)
		_, err := s.Load("flow-1", cache.SlotNodes)
		assert.ErrorIs(t, err, cache.ErrStoreClosed)
		_, err = s.List("flow-1")
		assert.ErrorIs(t, err, cache.ErrStoreClosed)
		assert.ErrorIs(t, s.Delete("flow-1", cache.SlotNodes), cache.ErrStoreClosed)
		assert.ErrorIs(t, s.DeleteGraph("flow-1"), cache.ErrStoreClosed)
	}},
}

func TestStoreContract(t *testing.T) {
	for backend, open := range backends {
		for _, tc := range contract {
			t.Run(backend+"/"+tc.name, func(t *testing.T) {
				s := open(t)
				t.Cleanup(func() { _ = s.Close() })
				tc.run(t, s)
			})
		}
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	for backend, open := range backends {
		t.Run(backend, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			var wg sync.WaitGroup
			for w := range 40 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					graphID := fmt.Sprintf("flow-%d", w%8)
					for op := range 25 {
						slot := fmt.Sprintf("slot-%d", op%5)
						switch op % 4 {
						case 0:
							assert.NoError(t, s.Save(graphID, slot, []byte("data")))
						case 1:
							_, _ = s.Load(graphID, slot)
						case 2:
							_, err := s.List(graphID)
							assert.NoError(t, err)
						case 3:
							assert.NoError(t, s.Delete(graphID, slot))
						}
					}
				}()
			}
			wg.Wait()
		})
	}
}
