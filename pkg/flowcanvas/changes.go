package flowcanvas

// ChangeKind identifies what a NodeChange or EdgeChange does.
type ChangeKind string

// Change kinds accepted by ApplyNodeChanges and ApplyEdgeChanges.
const (
	ChangeAdd        ChangeKind = "add"
	ChangeRemove     ChangeKind = "remove"
	ChangePosition   ChangeKind = "position"
	ChangeSelect     ChangeKind = "select"
	ChangeData       ChangeKind = "data"
	ChangeDimensions ChangeKind = "dimensions"
	ChangeReplace    ChangeKind = "replace"
)

// NodeChange is one entry of a node change batch.
//
// Which fields are read depends on Kind:
//   - add, replace: Node
//   - position: Position, Dragging
//   - select: Selected
//   - data: Data (merged into the node's data; a nil value deletes the key)
//   - dimensions: Size
//   - remove: ID only
type NodeChange struct {
	Kind     ChangeKind
	ID       string
	Node     *Node
	Position *Position
	Dragging bool
	Selected bool
	Data     map[string]any
	Size     *Size
}

// significant reports whether the change belongs in undo history.
// Selection, measurement and in-progress drags do not.
func (c NodeChange) significant() bool {
	switch c.Kind {
	case ChangeSelect, ChangeDimensions:
		return false
	case ChangePosition:
		return !c.Dragging
	default:
		return true
	}
}

// EdgeChange is one entry of an edge change batch.
//
// Which fields are read depends on Kind:
//   - add, replace: Edge
//   - select: Selected
//   - data: Data (merged; a nil value deletes the key)
//   - remove: ID only
type EdgeChange struct {
	Kind     ChangeKind
	ID       string
	Edge     *Edge
	Selected bool
	Data     map[string]any
}

func (c EdgeChange) significant() bool {
	return c.Kind != ChangeSelect
}

// Reason describes what produced a Change notification.
type Reason string

// Change reasons.
const (
	ReasonNodes     Reason = "nodes"
	ReasonEdges     Reason = "edges"
	ReasonConnect   Reason = "connect"
	ReasonReplace   Reason = "replace"
	ReasonLoad      Reason = "load"
	ReasonUndo      Reason = "undo"
	ReasonRedo      Reason = "redo"
	ReasonDuplicate Reason = "duplicate"
	ReasonRestore   Reason = "restore"
)

// Change is delivered to OnChange listeners after a mutation commits.
type Change struct {
	// Seq increases by one per committed mutation.
	Seq uint64

	// Reason names the operation that produced the change.
	Reason Reason

	// Significant is false for selection, measurement, in-progress drags
	// and loads. Save pipelines ignore insignificant changes.
	Significant bool

	// State is a deep copy of the graph right after the mutation.
	State State
}

// Resync asks the rendering layer to repaint. EdgeID is empty for a full
// repaint.
type Resync struct {
	EdgeID string
}

// Event types published on the store's bus.
const (
	EventChanged = "graph.changed"
	EventResync  = "graph.resync"
)

func mergeData(dst, patch map[string]any) map[string]any {
	if len(patch) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = cloneValue(v)
	}
	return dst
}
