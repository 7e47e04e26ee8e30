package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/reconcile"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

// decoded is a flow document after node decoding and edge reconciliation.
type decoded struct {
	name   string
	state  flowcanvas.State
	report wire.DecodeReport
	result reconcile.Result
}

// readDocument reads a flow document from path, or stdin for "-".
func readDocument(path string, stdin io.Reader) (wire.FlowDocument, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return wire.FlowDocument{}, err
		}
		defer f.Close()
		r = f
	}

	var doc wire.FlowDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return wire.FlowDocument{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

func decodeDocument(doc wire.FlowDocument) decoded {
	nodes, report := wire.DecodeNodes(doc.Nodes)
	res := reconcile.New().Reconcile(doc.Edges, nodes)
	return decoded{
		name:   doc.Name,
		state:  flowcanvas.State{Nodes: nodes, Edges: res.Edges},
		report: report,
		result: res,
	}
}
