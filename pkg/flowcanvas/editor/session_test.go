package editor_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/cache"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/config"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/dragdrop"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/editor"
	fcerrors "github.com/randalmurphal/flowcanvas/pkg/flowcanvas/errors"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/guard"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/minimap"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/remote"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/remote/remotetest"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var fastRetry = fcerrors.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
	BackoffFactor:  2,
}

type env struct {
	srv   *remotetest.Server
	cache *cache.MemoryStore
	sess  *editor.Session
}

func newEnv(t *testing.T, opts ...editor.Option) env {
	t.Helper()
	srv := remotetest.NewServer()
	t.Cleanup(srv.Close)

	client, err := remote.New(srv.URL(), remote.WithLogger(discard), remote.WithRetry(fastRetry))
	require.NoError(t, err)

	c := cache.NewMemoryStore()
	t.Cleanup(func() { _ = c.Close() })

	base := []editor.Option{
		editor.WithRemote(client),
		editor.WithCache(c),
		editor.WithLogger(discard),
		editor.WithAutosave(false),
	}
	sess, err := editor.New("flow-1", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return env{srv: srv, cache: c, sess: sess}
}

func pos(x, y float64) *flowcanvas.Position {
	return &flowcanvas.Position{X: x, Y: y}
}

func greeting() wire.FlowDocument {
	return wire.FlowDocument{
		Name: "Greeting",
		Nodes: []wire.RawNode{
			{ID: "start-1", Type: "start", Position: pos(0, 0), Data: map[string]any{"label": "Start"}},
			{ID: "message-1", Type: "message", Position: pos(0, 100), Data: map[string]any{"label": "Hello"}},
			{ID: "end-1", Type: "end", Position: pos(0, 200), Data: map[string]any{"label": "End"}},
		},
		Edges: []wire.RawEdge{
			{ID: "e1", Source: "start-1", Target: "message-1"},
			{ID: "e2", Source: "message-1", Target: "end-1"},
		},
	}
}

func nodeIDs(nodes []flowcanvas.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func texts(msgs []editor.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestNewRequiresGraphID(t *testing.T) {
	_, err := editor.New("")
	assert.ErrorIs(t, err, editor.ErrNoGraphID)
}

func TestLoadFromRemote(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())

	res, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, editor.SourceRemote, res.Source)
	assert.Equal(t, 3, res.Nodes)
	assert.Equal(t, 2, res.Edges)
	assert.Zero(t, res.DroppedEdges)
	assert.Equal(t, "Greeting", e.sess.Name())
	assert.Equal(t, []string{"start-1", "message-1", "end-1"}, nodeIDs(e.sess.Store().Nodes()))
	assert.Empty(t, e.sess.Messages())
	assert.False(t, e.sess.Store().CanUndo(), "a load is not an undo step")
}

func TestLoadReportsUnresolvedEdges(t *testing.T) {
	e := newEnv(t)
	doc := greeting()
	doc.Edges = append(doc.Edges, wire.RawEdge{ID: "e3", Source: "end-1", Target: "ghost"})
	e.srv.Put("flow-1", doc)

	res, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Edges)
	assert.Equal(t, 1, res.Unresolved)
	msgs := e.sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, editor.LevelWarning, msgs[0].Level)
	assert.Equal(t, "1 connections could not be restored", msgs[0].Text)
}

func TestLoadDropsInvalidNodes(t *testing.T) {
	e := newEnv(t)
	e.srv.PutRaw("flow-1", `{"nodes":[{"id":"start-1","type":"start"},{"id":"x","type":"teleport"},{"type":"end"}],"edges":[]}`)

	res, err := e.sess.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Nodes)
	assert.Equal(t, 2, res.DroppedNodes)
}

func TestLoadFallsBackToCacheOnServerError(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())
	_, err := cache.SaveNodes(e.cache, "flow-1", []flowcanvas.Node{
		{ID: "start-1", Type: flowcanvas.NodeStart, Data: map[string]any{"label": "Cached"}},
		{ID: "end-1", Type: flowcanvas.NodeEnd, Position: flowcanvas.Position{X: 200}},
	})
	require.NoError(t, err)
	_, err = cache.SaveEdges(e.cache, "flow-1", []flowcanvas.Edge{{ID: "e1", Source: "start-1", Target: "end-1"}})
	require.NoError(t, err)
	e.srv.FailNext(http.MethodGet, 500, 500, 500)

	res, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, editor.SourceCache, res.Source)
	require.Error(t, res.RemoteErr)
	assert.True(t, fcerrors.IsRetryable(res.RemoteErr))
	assert.Equal(t, 2, res.Nodes)
	assert.Equal(t, 1, res.Edges)
	assert.Equal(t, 3, e.srv.Requests(http.MethodGet))

	msgs := e.sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, editor.LevelWarning, msgs[0].Level)
	assert.Contains(t, msgs[0].Text, "last local copy")
}

func TestLoadMissingFlowStartsFresh(t *testing.T) {
	e := newEnv(t)

	res, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, editor.SourceStarter, res.Source)
	assert.NoError(t, res.RemoteErr)
	nodes := e.sess.Store().Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "start-1", nodes[0].ID)
	assert.Equal(t, flowcanvas.NodeStart, nodes[0].Type)
	assert.Equal(t, editor.StarterPosition, nodes[0].Position)
	assert.Equal(t, "Start", nodes[0].Label())
	assert.Empty(t, e.sess.Messages(), "a new flow is not an error")
}

func TestLoadOffline(t *testing.T) {
	c := cache.NewMemoryStore()
	_, err := cache.SaveNodes(c, "flow-1", []flowcanvas.Node{{ID: "message-1", Type: flowcanvas.NodeMessage}})
	require.NoError(t, err)

	sess, err := editor.New("flow-1", editor.WithCache(c), editor.WithLogger(discard))
	require.NoError(t, err)
	defer sess.Close()

	res, err := sess.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, editor.SourceCache, res.Source)
	assert.Equal(t, []string{"message-1"}, nodeIDs(sess.Store().Nodes()))

	assert.ErrorIs(t, sess.Save(context.Background()), editor.ErrOffline)
}

func TestLoadUsesCachedEdgesWhenRemoteHasNone(t *testing.T) {
	e := newEnv(t)
	doc := greeting()
	doc.Edges = nil
	e.srv.Put("flow-1", doc)
	_, err := cache.SaveEdges(e.cache, "flow-1", []flowcanvas.Edge{
		{ID: "e1", Source: "start-1", Target: "message-1"},
		{ID: "e2", Source: "message-1", Target: "end-1"},
	})
	require.NoError(t, err)

	res, err := e.sess.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, res.EdgesFromCache)
	assert.Equal(t, 2, res.Edges)
}

func TestLoadBacksUpCurrentGraph(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)
	require.True(t, e.sess.Store().DeleteNode("end-1"))

	_, err = e.sess.Load(context.Background())
	require.NoError(t, err)

	cached, _, err := cache.LoadNodes(e.cache, "flow-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"start-1", "message-1"}, nodeIDs(cached))
}

func TestLoadCancelled(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.sess.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, e.sess.Store().NodeCount())
}

func TestSaveRoundTrip(t *testing.T) {
	e := newEnv(t, editor.WithFlowName("Support"))
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	_, err = e.sess.Drop([]byte(`{"type":"end"}`), dragdrop.Point{X: 300, Y: 200}, dragdrop.Rect{})
	require.NoError(t, err)
	require.NoError(t, e.sess.Save(context.Background()))

	doc, ok := e.srv.Document("flow-1")
	require.True(t, ok)
	assert.Equal(t, "Support", doc.Name)
	assert.Len(t, doc.Nodes, 2)

	cached, err := cache.HasNodes(e.cache, "flow-1")
	require.NoError(t, err)
	assert.True(t, cached)
}

func TestSaveFailureIsReported(t *testing.T) {
	e := newEnv(t)
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)
	e.srv.FailNext(http.MethodPut, 422)

	err = e.sess.Save(context.Background())
	require.Error(t, err)

	msgs := e.sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, editor.LevelError, msgs[0].Level)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "Changes could not be saved"))
	assert.Equal(t, 1, e.sess.Store().NodeCount(), "a failed save keeps the graph")
}

func TestUnauthorizedIsReported(t *testing.T) {
	e := newEnv(t)
	e.srv.RequireToken("secret")

	res, err := e.sess.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, editor.SourceStarter, res.Source)
	assert.True(t, fcerrors.IsUnauthorized(res.RemoteErr))

	require.Error(t, e.sess.Save(context.Background()))

	msgs := e.sess.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "session expired")
	assert.Contains(t, msgs[1].Text, "session expired")
	assert.Equal(t, editor.LevelError, msgs[1].Level)
}

func TestAutosave(t *testing.T) {
	e := newEnv(t, editor.WithAutosave(true), editor.WithAutosaveDelay(20*time.Millisecond))
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)
	e.sess.Start(context.Background())

	require.True(t, e.sess.Store().UpdateNodeData("start-1", map[string]any{"label": "Go"}))

	require.Eventually(t, func() bool {
		doc, ok := e.srv.Document("flow-1")
		return ok && len(doc.Nodes) == 1 && doc.Nodes[0].Data["label"] == "Go"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, e.srv.Requests(http.MethodPut))
}

func TestLoadDoesNotAutosave(t *testing.T) {
	e := newEnv(t, editor.WithAutosave(true), editor.WithAutosaveDelay(10*time.Millisecond))
	e.srv.Put("flow-1", greeting())
	e.sess.Start(context.Background())

	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, e.srv.Requests(http.MethodPut))
}

func TestReplaceNodesRefusesEmptying(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	err = e.sess.ReplaceNodes(nil)
	assert.ErrorIs(t, err, guard.ErrRefused)
	assert.Equal(t, 3, e.sess.Store().NodeCount())

	msgs := e.sess.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "blocked")
}

func TestClearThenRecover(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, e.sess.Clear())
	assert.Zero(t, e.sess.Store().NodeCount())

	_, err = e.sess.Recover()
	assert.ErrorIs(t, err, guard.ErrNoBackup)
}

func TestRecoverAfterUnexpectedLoss(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, ok := e.sess.Guard().LastSnapshot()
		return ok && len(snap.State.Nodes) == 3
	}, time.Second, 5*time.Millisecond)

	// bypasses the guard
	e.sess.Store().ReplaceNodes(nil)

	rec, err := e.sess.Recover()
	require.NoError(t, err)
	assert.Equal(t, guard.SourceMemory, rec.Source)
	assert.Equal(t, 3, rec.Nodes)
	assert.Equal(t, 3, e.sess.Store().NodeCount())
	assert.Contains(t, texts(e.sess.Messages()), "Recovered 3 nodes and 2 connections from the memory backup.")
}

func TestRecoverLeavesNonEmptyGraph(t *testing.T) {
	e := newEnv(t)
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	rec, err := e.sess.Recover()
	require.NoError(t, err)
	assert.Equal(t, guard.SourceNone, rec.Source)
	assert.Empty(t, e.sess.Messages())
}

func TestDropUsesViewport(t *testing.T) {
	e := newEnv(t)
	e.sess.SetViewport(flowcanvas.Viewport{X: 100, Y: 50, Zoom: 2})

	n, err := e.sess.Drop([]byte(`{"nodeInfo":{"type":"message"}}`),
		dragdrop.Point{X: 520, Y: 270}, dragdrop.Rect{X: 20, Y: 20, Width: 800, Height: 600})
	require.NoError(t, err)

	assert.Equal(t, flowcanvas.Position{X: 200, Y: 100}, n.Position)
	assert.Equal(t, "Message", n.Label())
	_, ok := e.sess.Store().Node(n.ID)
	assert.True(t, ok)
}

func TestDropRejectsUnknownType(t *testing.T) {
	e := newEnv(t)
	_, err := e.sess.Drop([]byte(`{"type":"teleport"}`), dragdrop.Point{}, dragdrop.Rect{})
	require.Error(t, err)
	assert.Zero(t, e.sess.Store().NodeCount())
}

func TestDecisionOptions(t *testing.T) {
	e := newEnv(t, editor.WithDecisionOptions(true))
	_, err := e.sess.Drop([]byte(`{"type":"decision"}`), dragdrop.Point{}, dragdrop.Rect{})
	require.NoError(t, err)
	assert.Equal(t, 3, e.sess.Store().NodeCount())
	assert.Equal(t, 2, e.sess.Store().EdgeCount())
}

func TestMinimapDragPansSession(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	layout := e.sess.Minimap(true)
	drag := e.sess.MinimapDrag()
	start := layout.Transform(flowcanvas.Position{X: 0, Y: 100})
	require.True(t, drag.Begin(layout, start))

	before := e.sess.Viewport()
	vp, ok := drag.Move(minimap.Point{X: start.X + 10, Y: start.Y})
	require.True(t, ok)
	drag.End()

	assert.Equal(t, vp, e.sess.Viewport())
	assert.NotEqual(t, before.X, vp.X)
	assert.Equal(t, before.Y, vp.Y)
}

func TestRenderMinimap(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.sess.RenderMinimap(&buf, true, flowcanvas.Size{Width: 800, Height: 600}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestLint(t *testing.T) {
	e := newEnv(t)
	doc := greeting()
	doc.Edges = doc.Edges[:1]
	e.srv.Put("flow-1", doc)
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	issues := e.sess.Lint()
	require.Len(t, issues, 1)
	assert.Equal(t, "end-1", issues[0].NodeID)
}

func TestMessagesAreBounded(t *testing.T) {
	e := newEnv(t)
	e.srv.Put("flow-1", greeting())
	_, err := e.sess.Load(context.Background())
	require.NoError(t, err)

	var seen int
	e.sess.OnMessage(func(editor.Message) { seen++ })
	for i := 0; i < 60; i++ {
		_ = e.sess.ReplaceNodes(nil)
	}
	assert.Equal(t, 60, seen)
	assert.Len(t, e.sess.Messages(), 50)
}

func TestCloseIsIdempotent(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.sess.Close())
	require.NoError(t, e.sess.Close())
}

func TestOpen(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	srv.Put("flow-9", greeting())

	s := config.DefaultSettings()
	s.GraphID = "flow-9"
	s.Remote.BaseURL = srv.URL()
	s.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	s.Autosave.Enabled = false

	sess, err := editor.Open(s, editor.WithLogger(discard))
	require.NoError(t, err)

	res, err := sess.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, editor.SourceRemote, res.Source)
	require.NoError(t, sess.Save(context.Background()))
	require.NoError(t, sess.Close())

	// the SQLite cache outlives the session
	c, err := cache.NewSQLiteStore(s.Cache.Path)
	require.NoError(t, err)
	defer c.Close()
	nodes, _, err := cache.LoadNodes(c, "flow-9")
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestOpenRejectsInvalidSettings(t *testing.T) {
	s := config.DefaultSettings()
	s.GraphID = "flow-1"
	s.History.Limit = 0
	_, err := editor.Open(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "History.Limit")

	s = config.DefaultSettings()
	_, err = editor.Open(s)
	assert.ErrorIs(t, err, editor.ErrNoGraphID)
}
