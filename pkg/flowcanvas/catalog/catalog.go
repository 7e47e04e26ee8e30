package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
)

// Unlimited disables a connection limit.
const Unlimited = -1

// FallbackColor is used for kinds registered without a color.
const FallbackColor = "#00E0FF"

// ErrInvalidKind is returned by Register for a kind without a type.
var ErrInvalidKind = errors.New("kind has no type")

// Kind describes one node type.
type Kind struct {
	Type  flowcanvas.NodeType
	Label string
	Size  flowcanvas.Size
	Color string

	// DataKeys lists the data keys a node of this kind may carry besides
	// the label. Nil allows any key.
	DataKeys []string

	MinIn, MaxIn   int
	MinOut, MaxOut int
}

// Catalog is a registry of kinds keyed by node type.
type Catalog struct {
	mu    sync.RWMutex
	kinds map[flowcanvas.NodeType]Kind
	order []flowcanvas.NodeType
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{kinds: make(map[flowcanvas.NodeType]Kind)}
}

// Default returns a catalog holding the built-in kinds in palette order.
func Default() *Catalog {
	c := New()
	for _, k := range builtin() {
		_ = c.Register(k)
	}
	return c
}

func builtin() []Kind {
	size := flowcanvas.Size{Width: flowcanvas.DefaultNodeWidth, Height: flowcanvas.DefaultNodeHeight}
	return []Kind{
		{Type: flowcanvas.NodeStart, Size: size, Color: "#4CAF50",
			DataKeys: []string{"dynamicContent"},
			MinIn: 0, MaxIn: 0, MinOut: 0, MaxOut: 1},
		{Type: flowcanvas.NodeMessage, Size: size, Color: FallbackColor,
			DataKeys: []string{"message"},
			MinIn: 1, MaxIn: Unlimited, MinOut: 0, MaxOut: 1},
		{Type: flowcanvas.NodeDecision, Size: size, Color: "#FFC107",
			DataKeys: []string{"question", "conditions"},
			MinIn: 1, MaxIn: Unlimited, MinOut: 1, MaxOut: Unlimited},
		{Type: flowcanvas.NodeAction, Size: size, Color: "#2196F3",
			DataKeys: []string{"description", "actionType"},
			MinIn: 0, MaxIn: Unlimited, MinOut: 0, MaxOut: Unlimited},
		{Type: flowcanvas.NodeOption, Size: size, Color: FallbackColor,
			DataKeys: []string{"condition", "conditionId", "sourceDecisionNode"},
			MinIn: 0, MaxIn: Unlimited, MinOut: 0, MaxOut: Unlimited},
		{Type: flowcanvas.NodeEnd, Size: size, Color: "#F44336",
			DataKeys: []string{"endMessage"},
			MinIn: 1, MaxIn: Unlimited, MinOut: 0, MaxOut: 0},
	}
}

// Register adds or replaces a kind. A missing label defaults to the
// title-cased type, a missing size to the default node size and a
// missing color to FallbackColor.
func (c *Catalog) Register(k Kind) error {
	if k.Type == "" {
		return ErrInvalidKind
	}
	if k.Label == "" {
		k.Label = flowcanvas.DefaultLabel(k.Type)
	}
	if k.Size.IsZero() {
		k.Size = flowcanvas.Size{Width: flowcanvas.DefaultNodeWidth, Height: flowcanvas.DefaultNodeHeight}
	}
	if k.Color == "" {
		k.Color = FallbackColor
	}
	if k.DataKeys != nil {
		k.DataKeys = append([]string(nil), k.DataKeys...)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.kinds[k.Type]; !ok {
		c.order = append(c.order, k.Type)
	}
	c.kinds[k.Type] = k
	return nil
}

// Get returns the kind for t.
func (c *Catalog) Get(t flowcanvas.NodeType) (Kind, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.kinds[t]
	return k, ok
}

// Has reports whether t is registered.
func (c *Catalog) Has(t flowcanvas.NodeType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.kinds[t]
	return ok
}

// Types returns the registered types in registration order.
func (c *Catalog) Types() []flowcanvas.NodeType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]flowcanvas.NodeType(nil), c.order...)
}

// Len returns the number of registered kinds.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.kinds)
}

// Palette maps every registered type to its minimap color.
func (c *Catalog) Palette() map[flowcanvas.NodeType]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := make(map[flowcanvas.NodeType]string, len(c.kinds))
	for t, k := range c.kinds {
		p[t] = k.Color
	}
	return p
}

// FilterData returns a copy of data holding only the label and the keys
// allowed for t. Unknown types keep nothing but the label.
func (c *Catalog) FilterData(t flowcanvas.NodeType, data map[string]any) map[string]any {
	k, ok := c.Get(t)
	out := make(map[string]any, len(data))
	if label, ok := data[flowcanvas.LabelKey]; ok {
		out[flowcanvas.LabelKey] = label
	}
	if !ok {
		return out
	}
	if k.DataKeys == nil {
		for key, v := range data {
			out[key] = v
		}
		return flowcanvas.CloneData(out)
	}
	for _, key := range k.DataKeys {
		if v, ok := data[key]; ok {
			out[key] = v
		}
	}
	return flowcanvas.CloneData(out)
}

// Issue is a connection-limit violation found by Lint.
type Issue struct {
	NodeID  string
	Type    flowcanvas.NodeType
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s (%s): %s", i.NodeID, i.Type, i.Message)
}

// Lint checks every node's incoming and outgoing edge counts against its
// kind. Nodes of unregistered types are skipped. Issues are returned in
// node order.
func (c *Catalog) Lint(st flowcanvas.State) []Issue {
	in := make(map[string]int, len(st.Nodes))
	out := make(map[string]int, len(st.Nodes))
	for _, e := range st.Edges {
		out[e.Source]++
		in[e.Target]++
	}

	var issues []Issue
	for _, n := range st.Nodes {
		k, ok := c.Get(n.Type)
		if !ok {
			continue
		}
		add := func(format string, args ...any) {
			issues = append(issues, Issue{NodeID: n.ID, Type: n.Type, Message: fmt.Sprintf(format, args...)})
		}
		if k.MaxOut != Unlimited && out[n.ID] > k.MaxOut {
			add("%d outgoing connections, at most %d allowed", out[n.ID], k.MaxOut)
		}
		if out[n.ID] < k.MinOut {
			add("%d outgoing connections, at least %d required", out[n.ID], k.MinOut)
		}
		if k.MaxIn != Unlimited && in[n.ID] > k.MaxIn {
			add("%d incoming connections, at most %d allowed", in[n.ID], k.MaxIn)
		}
		if in[n.ID] < k.MinIn {
			add("%d incoming connections, at least %d required", in[n.ID], k.MinIn)
		}
	}
	return issues
}
