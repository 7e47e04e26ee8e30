package wire

import (
	"encoding/json"
	"strconv"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
)

// BackendIDKeys are the node data keys that may hold the server-assigned
// id of a node, in lookup order.
var BackendIDKeys = []string{"backend_id", "serverId", "numeric_id"}

// RawNode is a node as stored by any client version.
type RawNode struct {
	ID       ID                   `json:"id"`
	Type     string               `json:"type"`
	Position *flowcanvas.Position `json:"position,omitempty"`
	Width    float64              `json:"width,omitempty"`
	Height   float64              `json:"height,omitempty"`
	Data     map[string]any       `json:"data,omitempty"`
}

// SerializedNode is the canonical wire shape of a node in a save request.
// Selection is view state and is not saved.
type SerializedNode struct {
	ID       string              `json:"id"`
	Type     string              `json:"type"`
	Position flowcanvas.Position `json:"position"`
	Width    float64             `json:"width,omitempty"`
	Height   float64             `json:"height,omitempty"`
	Data     map[string]any      `json:"data"`
}

// Raw converts a serialized node back into the load shape.
func (s SerializedNode) Raw() RawNode {
	pos := s.Position
	return RawNode{
		ID:       ID(s.ID),
		Type:     s.Type,
		Position: &pos,
		Width:    s.Width,
		Height:   s.Height,
		Data:     flowcanvas.CloneData(s.Data),
	}
}

// RawNodes converts a save payload back into load shapes.
func RawNodes(nodes []SerializedNode) []RawNode {
	out := make([]RawNode, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Raw()
	}
	return out
}

// AdaptNodes converts store nodes into the save shape.
func AdaptNodes(nodes []flowcanvas.Node) []SerializedNode {
	out := make([]SerializedNode, 0, len(nodes))
	for _, n := range nodes {
		data := flowcanvas.CloneData(n.Data)
		if data == nil {
			data = map[string]any{}
		}
		out = append(out, SerializedNode{
			ID:       n.ID,
			Type:     string(n.Type),
			Position: n.Position,
			Width:    n.Size.Width,
			Height:   n.Size.Height,
			Data:     data,
		})
	}
	return out
}

// DecodeReport lists the raw nodes DecodeNodes left out, by index.
type DecodeReport struct {
	MissingID   []int
	UnknownType []int
	DuplicateID []int
}

// Dropped returns the number of nodes left out.
func (r DecodeReport) Dropped() int {
	return len(r.MissingID) + len(r.UnknownType) + len(r.DuplicateID)
}

// DecodeNodes converts raw nodes into store nodes. Nodes without an id,
// with an unknown type or repeating an earlier id are left out and
// reported. A missing label defaults to the type name.
func DecodeNodes(raw []RawNode) ([]flowcanvas.Node, DecodeReport) {
	var report DecodeReport
	out := make([]flowcanvas.Node, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for i, r := range raw {
		id := r.ID.String()
		t := flowcanvas.NodeType(r.Type)
		switch {
		case id == "":
			report.MissingID = append(report.MissingID, i)
			continue
		case !t.Valid():
			report.UnknownType = append(report.UnknownType, i)
			continue
		}
		if _, dup := seen[id]; dup {
			report.DuplicateID = append(report.DuplicateID, i)
			continue
		}
		seen[id] = struct{}{}

		n := flowcanvas.Node{
			ID:   id,
			Type: t,
			Size: flowcanvas.Size{Width: r.Width, Height: r.Height},
			Data: flowcanvas.CloneData(r.Data),
		}
		if r.Position != nil {
			n.Position = *r.Position
		}
		if n.Data == nil {
			n.Data = make(map[string]any, 1)
		}
		if label, _ := n.Data[flowcanvas.LabelKey].(string); label == "" {
			n.Data[flowcanvas.LabelKey] = flowcanvas.DefaultLabel(t)
		}
		out = append(out, n)
	}
	return out, report
}

// NodeIDMap maps each node id to the backend id recorded in its data
// under one of BackendIDKeys. Nodes without one are left out.
func NodeIDMap(nodes []flowcanvas.Node) map[string]string {
	m := make(map[string]string)
	for _, n := range nodes {
		for _, key := range BackendIDKeys {
			if v := StringValue(n.Data[key]); v != "" {
				m[n.ID] = v
				break
			}
		}
	}
	return m
}

// StringValue formats an id held in JSON-decoded data. Integral floats
// print without a fraction so 42.0 matches "42". Other types yield "".
func StringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
