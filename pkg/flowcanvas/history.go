package flowcanvas

// DefaultHistoryLimit is the number of undo steps kept by default.
const DefaultHistoryLimit = 50

// History is a bounded linear undo/redo stack of snapshots.
// It is not safe for concurrent use; Store guards it with its own lock.
type History struct {
	limit  int
	past   []Snapshot
	future []Snapshot
}

// NewHistory creates a history keeping at most limit undo steps.
// A non-positive limit selects DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push records prev as the state before a new mutation and clears the
// redo stack. The oldest entry is discarded once the limit is reached.
func (h *History) Push(prev Snapshot) {
	h.past = append(h.past, prev)
	if over := len(h.past) - h.limit; over > 0 {
		h.past = append(h.past[:0:0], h.past[over:]...)
	}
	h.future = nil
}

// Undo pops the most recent past snapshot, pushing current onto the redo
// stack. Returns false at the boundary.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if len(h.past) == 0 {
		return Snapshot{}, false
	}
	last := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current)
	return last, true
}

// Redo pops the most recent future snapshot, pushing current onto the
// undo stack. Returns false at the boundary.
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	if len(h.future) == 0 {
		return Snapshot{}, false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, current)
	return next, true
}

// CanUndo reports whether Undo would succeed.
func (h *History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo would succeed.
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Len returns the number of undo and redo steps.
func (h *History) Len() (past, future int) { return len(h.past), len(h.future) }

// Clear drops both stacks.
func (h *History) Clear() {
	h.past = nil
	h.future = nil
}
