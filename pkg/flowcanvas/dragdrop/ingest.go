package dragdrop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/catalog"
	fcerrors "github.com/randalmurphal/flowcanvas/pkg/flowcanvas/errors"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/observability"
)

// maxIDAttempts bounds the id bump loop when many drops share a millisecond.
const maxIDAttempts = 1000

// Default option branches added under a dropped decision.
const (
	OptionOffsetY  = 100
	OptionSpacingY = 80
)

// Point is a pointer position in client pixels.
type Point struct {
	X float64
	Y float64
}

// Rect is the canvas element's bounds in client pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Descriptor is the validated content of a drop payload.
type Descriptor struct {
	Type string         `json:"type" validate:"required,nodetype"`
	Data map[string]any `json:"data"`
}

type envelope struct {
	NodeInfo *Descriptor `json:"nodeInfo"`
	Descriptor
}

// nodeTypeTag is the struct tag checking a type against the catalog.
const nodeTypeTag = "nodetype"

// Ingestor validates drop payloads and inserts the nodes they describe.
// It is safe for concurrent use.
type Ingestor struct {
	store    *flowcanvas.Store
	catalog  *catalog.Catalog
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
	options  bool
}

// New creates an Ingestor inserting into store.
func New(store *flowcanvas.Store, opts ...Option) *Ingestor {
	in := &Ingestor{
		store:   store,
		catalog: catalog.Default(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}

	in.validate = validator.New()
	err := in.validate.RegisterValidation(nodeTypeTag, func(fl validator.FieldLevel) bool {
		return in.catalog.Has(flowcanvas.NodeType(fl.Field().String()))
	})
	if err != nil {
		panic(fmt.Sprintf("dragdrop: register %s validation: %v", nodeTypeTag, err))
	}
	return in
}

// Parse decodes and validates a payload without touching the store.
func (in *Ingestor) Parse(payload []byte) (Descriptor, error) {
	raw := bytes.TrimSpace(payload)
	if len(raw) == 0 {
		return Descriptor{}, malformed("", "empty payload")
	}

	var d Descriptor
	switch raw[0] {
	case '{':
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return Descriptor{}, malformed("", "invalid JSON: "+err.Error())
		}
		d = env.Descriptor
		if env.NodeInfo != nil {
			d = *env.NodeInfo
		}
	case '"':
		if err := json.Unmarshal(raw, &d.Type); err != nil {
			return Descriptor{}, malformed("", "invalid JSON string: "+err.Error())
		}
	case '[':
		return Descriptor{}, malformed("", "payload is an array")
	default:
		d.Type = string(raw)
	}
	d.Type = strings.TrimSpace(d.Type)

	if err := in.validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Descriptor{}, malformed(strings.ToLower(verrs[0].Field()), describe(verrs[0], d.Type))
		}
		return Descriptor{}, malformed("", err.Error())
	}
	return d, nil
}

func describe(fe validator.FieldError, typ string) string {
	switch fe.Tag() {
	case "required":
		return "node type is required"
	case nodeTypeTag:
		return fmt.Sprintf("unknown node type %q", typ)
	default:
		return fe.Tag() + " check failed"
	}
}

func malformed(field, msg string) error {
	return fcerrors.Malformed(&fcerrors.ValidationError{Field: field, Message: msg}, "drop payload")
}

// Position converts a pointer position into graph space: the pointer
// relative to the canvas origin, less the viewport offset, divided by the
// zoom. A non-positive zoom counts as 1.
func Position(pointer Point, canvas Rect, vp flowcanvas.Viewport) flowcanvas.Position {
	zoom := vp.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return flowcanvas.Position{
		X: (pointer.X - canvas.X - vp.X) / zoom,
		Y: (pointer.Y - canvas.Y - vp.Y) / zoom,
	}
}

// Ingest validates payload and inserts the node it describes at the drop
// point. The node id is "{type}-{unix millis}", bumped by a millisecond
// while taken. Data keys the catalog does not allow for the type are
// dropped; a missing label takes the catalog default.
func (in *Ingestor) Ingest(payload []byte, pointer Point, canvas Rect, vp flowcanvas.Viewport) (flowcanvas.Node, error) {
	d, err := in.Parse(payload)
	if err != nil {
		observability.LogDropRejected(in.logger, err.Error())
		return flowcanvas.Node{}, err
	}

	typ := flowcanvas.NodeType(d.Type)
	kind, _ := in.catalog.Get(typ)
	data := in.catalog.FilterData(typ, d.Data)
	if label, ok := data[flowcanvas.LabelKey].(string); !ok || strings.TrimSpace(label) == "" {
		data[flowcanvas.LabelKey] = kind.Label
	}

	var conditions []condition
	if in.options && typ == flowcanvas.NodeDecision {
		if _, ok := data["conditions"]; !ok {
			conditions = defaultConditions()
			data["conditions"] = conditionData(conditions)
		}
	}

	n := flowcanvas.Node{
		Type:     typ,
		Position: Position(pointer, canvas, vp),
		Data:     data,
	}
	if err := in.insert(&n); err != nil {
		observability.LogDropRejected(in.logger, err.Error())
		return flowcanvas.Node{}, err
	}
	observability.LogNodeDropped(in.logger, n.ID, d.Type, n.Position.X, n.Position.Y)

	if len(conditions) > 0 {
		in.addOptions(n, conditions)
	}
	return n, nil
}

func (in *Ingestor) insert(n *flowcanvas.Node) error {
	ms := in.now().UnixMilli()
	for i := 0; i < maxIDAttempts; i++ {
		n.ID = string(n.Type) + "-" + strconv.FormatInt(ms+int64(i), 10)
		err := in.store.AddNode(*n)
		if err == nil {
			return nil
		}
		if !errors.Is(err, flowcanvas.ErrDuplicateNode) {
			return err
		}
	}
	return fmt.Errorf("%w: no free id for %s after %d attempts", flowcanvas.ErrDuplicateNode, n.Type, maxIDAttempts)
}

type condition struct {
	id    string
	text  string
	color string
}

func defaultConditions() []condition {
	return []condition{
		{id: uuid.NewString(), text: "Option A", color: "#3498db"},
		{id: uuid.NewString(), text: "Option B", color: "#e74c3c"},
	}
}

func conditionData(cs []condition) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = map[string]any{"id": c.id, "text": c.text, "color": c.color}
	}
	return out
}

// addOptions places one option node per condition below the decision and
// connects each to it.
func (in *Ingestor) addOptions(decision flowcanvas.Node, cs []condition) {
	changes := make([]flowcanvas.NodeChange, len(cs))
	edges := make([]flowcanvas.EdgeChange, len(cs))
	for i, c := range cs {
		opt := flowcanvas.Node{
			ID:       "option-" + decision.ID + "-" + c.id,
			Type:     flowcanvas.NodeOption,
			Position: decision.Position.Add(0, OptionOffsetY+float64(i*OptionSpacingY)),
			Data: map[string]any{
				flowcanvas.LabelKey:  c.text,
				"condition":          c.text,
				"conditionId":        c.id,
				"sourceDecisionNode": decision.ID,
			},
		}
		changes[i] = flowcanvas.NodeChange{Kind: flowcanvas.ChangeAdd, Node: &opt}
		edges[i] = flowcanvas.EdgeChange{Kind: flowcanvas.ChangeAdd, Edge: &flowcanvas.Edge{
			ID:           "edge-" + decision.ID + "-" + c.id,
			Source:       decision.ID,
			Target:       opt.ID,
			SourceHandle: "output-" + c.id,
			TargetHandle: "target",
			Animated:     true,
			Style:        flowcanvas.EdgeStyle{Stroke: c.color, Width: 2},
		}}
	}
	in.store.ApplyNodeChanges(changes)
	in.store.ApplyEdgeChanges(edges)
}
