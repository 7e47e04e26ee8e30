package reconcile

import (
	"strings"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

// Side names the end of an edge being resolved.
type Side string

// Edge sides.
const (
	SideSource Side = "source"
	SideTarget Side = "target"
)

// Endpoint holds every field of a raw edge that may identify one end.
type Endpoint struct {
	Side     Side
	ID       string
	Original string
	Legacy   string
	DataID   string
	Position *flowcanvas.Position
}

// SourceEndpoint extracts the source side of e.
func SourceEndpoint(e wire.RawEdge) Endpoint {
	return Endpoint{
		Side:     SideSource,
		ID:       e.Source.String(),
		Original: e.SourceOriginal.String(),
		Legacy:   e.SourceID.String(),
		DataID:   e.DataString(wire.DataSourceID),
		Position: e.SourcePosition,
	}
}

// TargetEndpoint extracts the target side of e.
func TargetEndpoint(e wire.RawEdge) Endpoint {
	return Endpoint{
		Side:     SideTarget,
		ID:       e.Target.String(),
		Original: e.TargetOriginal.String(),
		Legacy:   e.TargetID.String(),
		DataID:   e.DataString(wire.DataTargetID),
		Position: e.TargetPosition,
	}
}

// Strategy resolves an endpoint to a canonical node id.
type Strategy struct {
	Name    string
	Resolve func(ep Endpoint, t *AliasTable) (string, bool)
}

// The resolution strategies, in DefaultChain order.
var (
	// Exact matches the endpoint against node ids.
	Exact = Strategy{Name: "exact", Resolve: func(ep Endpoint, t *AliasTable) (string, bool) {
		return exact(ep.ID, t)
	}}

	// AddPrefix retries an unprefixed endpoint with the "node-" prefix.
	AddPrefix = Strategy{Name: "add-prefix", Resolve: func(ep Endpoint, t *AliasTable) (string, bool) {
		if ep.ID == "" || strings.HasPrefix(ep.ID, wire.NodePrefix) {
			return "", false
		}
		return exact(wire.NodePrefix+ep.ID, t)
	}}

	// StripPrefix retries a prefixed endpoint without the "node-" prefix.
	StripPrefix = Strategy{Name: "strip-prefix", Resolve: func(ep Endpoint, t *AliasTable) (string, bool) {
		rest, ok := strings.CutPrefix(ep.ID, wire.NodePrefix)
		if !ok {
			return "", false
		}
		return exact(rest, t)
	}}

	// Alias looks the endpoint up in the alias table.
	Alias = Strategy{Name: "alias", Resolve: func(ep Endpoint, t *AliasTable) (string, bool) {
		return t.Lookup(ep.ID)
	}}

	// Original tries the recorded original id, then the legacy
	// source_id/target_id field, each by exact match or alias.
	Original = Strategy{Name: "original", Resolve: func(ep Endpoint, t *AliasTable) (string, bool) {
		if id, ok := exactOrAlias(ep.Original, t); ok {
			return id, true
		}
		return exactOrAlias(ep.Legacy, t)
	}}

	// DataField tries data.sourceId or data.targetId by exact match or alias.
	DataField = Strategy{Name: "data", Resolve: func(ep Endpoint, t *AliasTable) (string, bool) {
		return exactOrAlias(ep.DataID, t)
	}}

	// PositionMatch finds the node at the endpoint's rounded position.
	PositionMatch = Strategy{Name: "position", Resolve: func(ep Endpoint, t *AliasTable) (string, bool) {
		if ep.Position == nil {
			return "", false
		}
		return t.AtPosition(*ep.Position)
	}}
)

// Chain is an ordered list of strategies. Resolution stops at the first hit.
type Chain []Strategy

// DefaultChain is the resolution order used by New.
var DefaultChain = Chain{Exact, AddPrefix, StripPrefix, Alias, Original, DataField, PositionMatch}

// Resolve runs ep through the chain. It returns the canonical id and the
// name of the strategy that found it.
func (c Chain) Resolve(ep Endpoint, t *AliasTable) (id, strategy string, ok bool) {
	for _, s := range c {
		if id, ok := s.Resolve(ep, t); ok {
			return id, s.Name, true
		}
	}
	return "", "", false
}

// Names returns the strategy names in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}

func exact(id string, t *AliasTable) (string, bool) {
	if id != "" && t.Has(id) {
		return id, true
	}
	return "", false
}

func exactOrAlias(id string, t *AliasTable) (string, bool) {
	if id, ok := exact(id, t); ok {
		return id, true
	}
	return t.Lookup(id)
}
