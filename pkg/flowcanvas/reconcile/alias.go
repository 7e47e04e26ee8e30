package reconcile

import (
	"math"
	"strconv"
	"strings"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

// AliasDataKeys are the node data keys whose values are registered as
// aliases of the node id.
var AliasDataKeys = []string{"nodeId", "node_id", "originalId", "backend_id", "numeric_id", "serverId", "id"}

// AliasTable maps every identifier form seen for a node to its canonical
// id. It is built from one node set and never changes afterwards.
//
// On collisions the first node in input order keeps the alias.
type AliasTable struct {
	ids       map[string]struct{}
	aliases   map[string]string
	positions map[string]string
}

// NewAliasTable indexes nodes. Registered aliases per node:
//   - the id itself
//   - for "node-" ids, the unprefixed form and its integer value
//   - string or numeric values under AliasDataKeys
//
// Positions are indexed separately under PositionKey.
func NewAliasTable(nodes []flowcanvas.Node) *AliasTable {
	t := &AliasTable{
		ids:       make(map[string]struct{}, len(nodes)),
		aliases:   make(map[string]string, len(nodes)*2),
		positions: make(map[string]string, len(nodes)),
	}
	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		t.ids[n.ID] = struct{}{}
	}
	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		t.add(n.ID, n.ID)
		if rest, ok := strings.CutPrefix(n.ID, wire.NodePrefix); ok {
			t.add(rest, n.ID)
			if v, err := strconv.ParseInt(rest, 10, 64); err == nil {
				t.add(strconv.FormatInt(v, 10), n.ID)
			}
		}
		for _, key := range AliasDataKeys {
			t.add(wire.StringValue(n.Data[key]), n.ID)
		}
		if key, ok := PositionKey(n.Position); ok {
			if _, taken := t.positions[key]; !taken {
				t.positions[key] = n.ID
			}
		}
	}
	return t
}

func (t *AliasTable) add(alias, id string) {
	if alias == "" {
		return
	}
	if _, taken := t.aliases[alias]; taken {
		return
	}
	t.aliases[alias] = id
}

// Has reports whether id is the canonical id of a node.
func (t *AliasTable) Has(id string) bool {
	_, ok := t.ids[id]
	return ok
}

// Lookup returns the canonical id registered for alias.
func (t *AliasTable) Lookup(alias string) (string, bool) {
	if alias == "" {
		return "", false
	}
	id, ok := t.aliases[alias]
	return id, ok
}

// AtPosition returns the node whose rounded position equals p rounded.
func (t *AliasTable) AtPosition(p flowcanvas.Position) (string, bool) {
	key, ok := PositionKey(p)
	if !ok {
		return "", false
	}
	id, found := t.positions[key]
	return id, found
}

// Len returns the number of registered aliases.
func (t *AliasTable) Len() int {
	return len(t.aliases)
}

// PositionKey returns "{round(x)},{round(y)}". ok is false for NaN or
// infinite coordinates.
func PositionKey(p flowcanvas.Position) (string, bool) {
	if !finite(p.X) || !finite(p.Y) {
		return "", false
	}
	return strconv.FormatInt(int64(roundHalfUp(p.X)), 10) + "," + strconv.FormatInt(int64(roundHalfUp(p.Y)), 10), true
}

// roundHalfUp rounds .5 towards positive infinity, so -2.5 becomes -2.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
