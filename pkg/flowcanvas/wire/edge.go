package wire

import (
	"strings"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
)

// EdgeType is the only edge type the API stores.
const EdgeType = "default"

// NodePrefix is the structural prefix some clients put in front of node ids.
const NodePrefix = "node-"

// Data keys AdaptEdges writes so reconciliation can recover endpoints
// from data alone.
const (
	DataSourceID = "sourceId"
	DataTargetID = "targetId"
)

// RawEdge is an edge as stored by any client version. Every field except
// the endpoints is optional.
type RawEdge struct {
	ID             ID                    `json:"id,omitempty"`
	Source         ID                    `json:"source,omitempty"`
	Target         ID                    `json:"target,omitempty"`
	SourceID       ID                    `json:"source_id,omitempty"`
	TargetID       ID                    `json:"target_id,omitempty"`
	SourceHandle   ID                    `json:"sourceHandle,omitempty"`
	TargetHandle   ID                    `json:"targetHandle,omitempty"`
	SourceOriginal ID                    `json:"sourceOriginal,omitempty"`
	TargetOriginal ID                    `json:"targetOriginal,omitempty"`
	Label          string                `json:"label,omitempty"`
	Style          *flowcanvas.EdgeStyle `json:"style,omitempty"`
	Animated       bool                  `json:"animated,omitempty"`
	Data           map[string]any        `json:"data,omitempty"`
	Type           string                `json:"type,omitempty"`

	// Endpoint positions, written by clients that tracked where an edge
	// was attached. Used as a last resort to find the endpoint node.
	SourcePosition *flowcanvas.Position `json:"sourcePosition,omitempty"`
	TargetPosition *flowcanvas.Position `json:"targetPosition,omitempty"`
}

// DataString returns data[key] as a string. Numbers are formatted the way
// they appear in JSON.
func (e RawEdge) DataString(key string) string {
	return StringValue(e.Data[key])
}

// SerializedEdge is the canonical wire shape of an edge in a save request.
type SerializedEdge struct {
	ID             string               `json:"id"`
	Source         string               `json:"source"`
	Target         string               `json:"target"`
	SourceID       string               `json:"source_id"`
	TargetID       string               `json:"target_id"`
	SourceHandle   string               `json:"sourceHandle"`
	TargetHandle   *string              `json:"targetHandle"`
	SourceOriginal string               `json:"sourceOriginal"`
	TargetOriginal string               `json:"targetOriginal"`
	Label          string               `json:"label,omitempty"`
	Style          flowcanvas.EdgeStyle `json:"style"`
	Animated       bool                 `json:"animated,omitempty"`
	Data           map[string]any       `json:"data,omitempty"`
	Type           string               `json:"type"`
}

// Raw converts a serialized edge back into the load shape.
func (s SerializedEdge) Raw() RawEdge {
	r := RawEdge{
		ID:             ID(s.ID),
		Source:         ID(s.Source),
		Target:         ID(s.Target),
		SourceID:       ID(s.SourceID),
		TargetID:       ID(s.TargetID),
		SourceHandle:   ID(s.SourceHandle),
		SourceOriginal: ID(s.SourceOriginal),
		TargetOriginal: ID(s.TargetOriginal),
		Label:          s.Label,
		Animated:       s.Animated,
		Data:           flowcanvas.CloneData(s.Data),
		Type:           s.Type,
	}
	if s.TargetHandle != nil {
		r.TargetHandle = ID(*s.TargetHandle)
	}
	if !s.Style.IsZero() {
		style := s.Style
		r.Style = &style
	}
	return r
}

// RawEdges converts a save payload back into load shapes.
func RawEdges(edges []SerializedEdge) []RawEdge {
	out := make([]RawEdge, len(edges))
	for i := range edges {
		out[i] = edges[i].Raw()
	}
	return out
}

// AdaptEdges converts store edges into the save shape.
//
// source_id and target_id carry the backend id of each endpoint: the
// entry in nodeIDMap for the endpoint (or its unprefixed form), else the
// edge's recorded original, else the endpoint itself. Edges with an empty
// endpoint and repeats of an already emitted (source, target) pair are
// left out. nodeIDMap may be nil.
func AdaptEdges(edges []flowcanvas.Edge, nodeIDMap map[string]string) []SerializedEdge {
	out := make([]SerializedEdge, 0, len(edges))
	seen := make(map[flowcanvas.Pair]struct{}, len(edges))

	for _, e := range edges {
		if e.Source == "" || e.Target == "" {
			continue
		}
		if _, dup := seen[e.Pair()]; dup {
			continue
		}
		seen[e.Pair()] = struct{}{}

		srcID := backendID(e.Source, e.SourceOriginal, nodeIDMap)
		tgtID := backendID(e.Target, e.TargetOriginal, nodeIDMap)

		s := SerializedEdge{
			ID:             e.ID,
			Source:         e.Source,
			Target:         e.Target,
			SourceID:       srcID,
			TargetID:       tgtID,
			SourceHandle:   SanitizeHandle(e.SourceHandle),
			SourceOriginal: firstNonEmpty(e.SourceOriginal, e.Source),
			TargetOriginal: firstNonEmpty(e.TargetOriginal, e.Target),
			Label:          e.Label,
			Style:          e.Style,
			Animated:       e.Animated,
			Data:           flowcanvas.CloneData(e.Data),
			Type:           EdgeType,
		}
		if s.ID == "" {
			s.ID = "edge-" + e.Pair().String()
		}
		if s.SourceHandle == "" {
			s.SourceHandle = flowcanvas.DefaultHandle
		}
		if h := SanitizeHandle(e.TargetHandle); h != "" {
			s.TargetHandle = &h
		}
		if s.Style.IsZero() {
			s.Style = flowcanvas.DefaultEdgeStyle
		}
		if s.Data == nil {
			s.Data = make(map[string]any, 2)
		}
		s.Data[DataSourceID] = srcID
		s.Data[DataTargetID] = tgtID

		out = append(out, s)
	}
	return out
}

func backendID(id, original string, nodeIDMap map[string]string) string {
	if b, ok := nodeIDMap[id]; ok && b != "" {
		return b
	}
	if stripped, ok := strings.CutPrefix(id, NodePrefix); ok {
		if b, ok := nodeIDMap[stripped]; ok && b != "" {
			return b
		}
	}
	return firstNonEmpty(original, id)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
