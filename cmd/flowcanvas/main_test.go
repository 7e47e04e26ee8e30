package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/remote/remotetest"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

const legacyDoc = `{
  "name": "Greeting",
  "nodes": [
    {"id": 1, "type": "start", "position": {"x": 0, "y": 0}, "data": {"label": "Start"}},
    {"id": "message-2", "type": "message", "position": {"x": 0, "y": 100}, "data": {"label": "Hi", "backend_id": 2}},
    {"id": "end-3", "type": "end", "position": {"x": 0, "y": 200}},
    {"id": "x", "type": "teleport"}
  ],
  "edges": [
    {"id": "a", "source_id": 1, "target_id": 2},
    {"id": "b", "source": "message-2", "target": "ghost"}
  ]
}`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInspect(t *testing.T) {
	out, err := run(t, "", "inspect", writeFile(t, "flow.json", legacyDoc))
	require.NoError(t, err)

	assert.Contains(t, out, "Greeting")
	assert.Contains(t, out, "nodes  3 loaded, 1 dropped")
	assert.Contains(t, out, "edges  1 placed, 1 dropped")
	assert.Contains(t, out, "unresolved target")
	assert.Contains(t, out, "unresolvable")
	assert.Contains(t, out, "end-3")
}

func TestInspectStdinStrict(t *testing.T) {
	out, err := run(t, legacyDoc, "inspect", "--strict", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lint issues")
	assert.Contains(t, out, "incoming connections, at least 1 required")
}

func TestInspectRejectsBadJSON(t *testing.T) {
	_, err := run(t, "{", "inspect", "-")
	require.Error(t, err)
}

func TestMinimap(t *testing.T) {
	png := filepath.Join(t.TempDir(), "map.png")
	out, err := run(t, legacyDoc, "minimap", "-", "-o", png, "--expanded", "--canvas-width", "800", "--canvas-height", "600")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func seededCache(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := cache.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	nodes := []flowcanvas.Node{
		{ID: "start-1", Type: flowcanvas.NodeStart, Data: map[string]any{"label": "Start"}},
		{ID: "end-1", Type: flowcanvas.NodeEnd, Position: flowcanvas.Position{Y: 100}, Data: map[string]any{"label": "End"}},
	}
	_, err = cache.SaveNodes(store, "flow-1", nodes)
	require.NoError(t, err)
	_, err = cache.SaveEdges(store, "flow-1", []flowcanvas.Edge{{ID: "e1", Source: "start-1", Target: "end-1"}})
	require.NoError(t, err)
	return path
}

func TestRecoverLists(t *testing.T) {
	out, err := run(t, "", "recover", "--cache", seededCache(t))
	require.NoError(t, err)
	assert.Contains(t, out, "flow-1")
	assert.Contains(t, out, "GRAPH")
}

func TestRecoverExports(t *testing.T) {
	out, err := run(t, "", "recover", "--cache", seededCache(t), "flow-1")
	require.NoError(t, err)

	var doc wire.FlowDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, wire.ID("start-1"), doc.Edges[0].Source)
}

func TestRecoverMissingGraph(t *testing.T) {
	_, err := run(t, "", "recover", "--cache", seededCache(t), "flow-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cached nodes")
}

func TestRecoverNeedsCache(t *testing.T) {
	_, err := run(t, "", "recover")
	assert.ErrorIs(t, err, errNoCachePath)
}

func TestLoadAndSave(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	srv.PutRaw("flow-1", legacyDoc)

	cfg := writeFile(t, "settings.toml", fmt.Sprintf(`
graph_id = "flow-1"

[remote]
base_url = %q

[cache]
path = %q

[log]
level = "error"
`, srv.URL(), filepath.Join(t.TempDir(), "cache.db")))

	out, err := run(t, "", "--config", cfg, "load", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "remote")
	assert.Contains(t, out, "1 connections could not be restored")
	assert.Contains(t, out, "saved flow-1")

	doc, ok := srv.Document("flow-1")
	require.True(t, ok)
	assert.Len(t, doc.Nodes, 3)
	assert.Len(t, doc.Edges, 1)
}

func TestLoadNeedsGraph(t *testing.T) {
	_, err := run(t, "", "load")
	assert.ErrorIs(t, err, errNoGraph)
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h := remotetest.NewHandler()
	h.PutRaw("flow-1", legacyDoc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, h) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/flows/flow-1")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not stop")
	}
}
