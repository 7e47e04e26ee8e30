package wire

// FlowDocument is the body of GET /flows/{graphId}.
type FlowDocument struct {
	Name  string    `json:"name,omitempty"`
	Nodes []RawNode `json:"nodes"`
	Edges []RawEdge `json:"edges"`
}

// SaveRequest is the body of PUT /flows/{graphId}.
type SaveRequest struct {
	Name  string           `json:"name"`
	Nodes []SerializedNode `json:"nodes"`
	Edges []SerializedEdge `json:"edges"`
}

// Document converts a save request into the shape a later load returns.
func (r SaveRequest) Document() FlowDocument {
	return FlowDocument{
		Name:  r.Name,
		Nodes: RawNodes(r.Nodes),
		Edges: RawEdges(r.Edges),
	}
}
