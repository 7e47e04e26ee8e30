package flowcanvas

import (
	"strings"
	"time"
)

// NodeType is the kind of a conversation step.
type NodeType string

// Node types understood by the editor.
const (
	NodeStart    NodeType = "start"
	NodeMessage  NodeType = "message"
	NodeDecision NodeType = "decision"
	NodeAction   NodeType = "action"
	NodeOption   NodeType = "option"
	NodeEnd      NodeType = "end"
)

// NodeTypes lists every valid NodeType in palette order.
var NodeTypes = []NodeType{NodeStart, NodeMessage, NodeDecision, NodeAction, NodeOption, NodeEnd}

// Valid reports whether t is one of NodeTypes.
func (t NodeType) Valid() bool {
	for _, v := range NodeTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Default node dimensions used when a node has not been measured yet.
const (
	DefaultNodeWidth  = 100
	DefaultNodeHeight = 40
)

// DefaultHandle is the source handle assigned to edges that carry none.
const DefaultHandle = "default"

// LabelKey is the data key holding a node's display label.
const LabelKey = "label"

// Position is a point in graph space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Size is a width/height pair. The zero value means "not measured".
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether the size was never measured.
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Viewport is the main canvas pan/zoom state. A graph point p appears on
// screen at p*Zoom + (X, Y).
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the identity transform.
var DefaultViewport = Viewport{Zoom: 1}

// Node is a typed, positioned vertex of the flow.
type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Position Position       `json:"position"`
	Size     Size           `json:"size"`
	Data     map[string]any `json:"data"`
	Selected bool           `json:"selected,omitempty"`
}

// Label returns the node's display label, or "" when none is set.
func (n Node) Label() string {
	if s, ok := n.Data[LabelKey].(string); ok {
		return s
	}
	return ""
}

// Dimensions returns the node size, falling back to the defaults when unmeasured.
func (n Node) Dimensions() Size {
	if n.Size.IsZero() {
		return Size{Width: DefaultNodeWidth, Height: DefaultNodeHeight}
	}
	return n.Size
}

// Center returns the center of the node's box.
func (n Node) Center() Position {
	d := n.Dimensions()
	return Position{X: n.Position.X + d.Width/2, Y: n.Position.Y + d.Height/2}
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	n.Data = CloneData(n.Data)
	return n
}

// EdgeStyle is the stroke used to draw an edge.
type EdgeStyle struct {
	Stroke string  `json:"stroke,omitempty"`
	Width  float64 `json:"strokeWidth,omitempty"`
}

// IsZero reports whether no style was set.
func (s EdgeStyle) IsZero() bool {
	return s.Stroke == "" && s.Width == 0
}

// DefaultEdgeStyle is applied to edges that arrive without a style.
var DefaultEdgeStyle = EdgeStyle{Stroke: "#00e0ff", Width: 2}

// Edge is a directed connection between two node handles.
//
// TargetHandle is empty when the edge attaches to the node's only target
// handle. SourceOriginal and TargetOriginal keep the endpoint identifiers
// the edge arrived with, before reconciliation, for diagnostics only.
type Edge struct {
	ID             string         `json:"id"`
	Source         string         `json:"source"`
	Target         string         `json:"target"`
	SourceHandle   string         `json:"sourceHandle"`
	TargetHandle   string         `json:"targetHandle,omitempty"`
	Style          EdgeStyle      `json:"style"`
	Animated       bool           `json:"animated,omitempty"`
	Label          string         `json:"label,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	Selected       bool           `json:"selected,omitempty"`
	SourceOriginal string         `json:"sourceOriginal,omitempty"`
	TargetOriginal string         `json:"targetOriginal,omitempty"`
}

// Pair returns the ordered endpoint pair of the edge.
func (e Edge) Pair() Pair {
	return Pair{Source: e.Source, Target: e.Target}
}

// Clone returns a deep copy of e.
func (e Edge) Clone() Edge {
	e.Data = CloneData(e.Data)
	return e
}

// Pair is an ordered (source, target) node pair. The graph holds at most
// one edge per Pair.
type Pair struct {
	Source string
	Target string
}

// String returns "source-target".
func (p Pair) String() string {
	return p.Source + "-" + p.Target
}

// Connection is a request to join two node handles.
type Connection struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// State is a point-in-time copy of the graph.
type State struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{Nodes: CloneNodes(s.Nodes), Edges: CloneEdges(s.Edges)}
}

// NodeIndex returns the position of the node with id in s.Nodes, or -1.
func (s State) NodeIndex(id string) int {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot is an immutable copy of the graph used by history and backups.
type Snapshot struct {
	State
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshot deep-copies s and stamps it with now.
func NewSnapshot(s State, now time.Time) Snapshot {
	return Snapshot{State: s.Clone(), Timestamp: now}
}

// CloneNodes deep-copies a node slice. A nil input yields an empty slice.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
	}
	return out
}

// CloneEdges deep-copies an edge slice. A nil input yields an empty slice.
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	for i := range edges {
		out[i] = edges[i].Clone()
	}
	return out
}

// CloneData deep-copies a JSON-like map. Nested maps and slices are copied;
// other values are shared.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneData(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// DefaultLabel returns the title-cased type name, used when a node has no label.
func DefaultLabel(t NodeType) string {
	s := string(t)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
