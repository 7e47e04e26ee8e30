package remote_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas"
	fcerrors "github.com/randalmurphal/flowcanvas/pkg/flowcanvas/errors"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/remote"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/remote/remotetest"
	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

var fastRetry = fcerrors.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
	BackoffFactor:  2,
}

func newClient(t *testing.T, opts ...remote.Option) (*remote.Client, *remotetest.Server) {
	t.Helper()
	srv := remotetest.NewServer()
	t.Cleanup(srv.Close)

	base := []remote.Option{
		remote.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		remote.WithRetry(fastRetry),
	}
	c, err := remote.New(srv.URL(), append(base, opts...)...)
	require.NoError(t, err)
	return c, srv
}

func sampleRequest() wire.SaveRequest {
	nodes := []flowcanvas.Node{
		{ID: "start-1", Type: flowcanvas.NodeStart, Data: map[string]any{"label": "Start"}},
		{ID: "end-1", Type: flowcanvas.NodeEnd, Position: flowcanvas.Position{X: 200}, Data: map[string]any{"label": "End"}},
	}
	edges := []flowcanvas.Edge{{ID: "e1", Source: "start-1", Target: "end-1"}}
	return wire.SaveRequest{
		Name:  "Greeting",
		Nodes: wire.AdaptNodes(nodes),
		Edges: wire.AdaptEdges(edges, nil),
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "flows", "://nope", "/relative"} {
		_, err := remote.New(u)
		assert.ErrorIs(t, err, remote.ErrInvalidBaseURL, u)
	}
}

func TestLoad(t *testing.T) {
	c, srv := newClient(t)
	srv.PutRaw("flow-1", `{"name":"Greeting","nodes":[{"id":7,"type":"start","data":{"label":"Hi"}}],"edges":[{"id":"e","source":7,"target":"8"}]}`)

	doc, err := c.Load(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.Equal(t, "Greeting", doc.Name)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, wire.ID("7"), doc.Nodes[0].ID)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, wire.ID("7"), doc.Edges[0].Source)
}

func TestLoadNotFoundIsNotRetried(t *testing.T) {
	c, srv := newClient(t)

	_, err := c.Load(context.Background(), "missing")
	require.Error(t, err)

	var herr *fcerrors.HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusNotFound, herr.StatusCode)
	assert.Equal(t, "flow missing not found", herr.Message)
	assert.Equal(t, "GET /flows/missing", herr.Endpoint)
	assert.True(t, fcerrors.IsPersistence(err))
	assert.Equal(t, 1, srv.Requests(http.MethodGet))
}

func TestLoadRetriesTransientFailures(t *testing.T) {
	c, srv := newClient(t)
	srv.Put("flow-1", sampleRequest().Document())
	srv.FailNext(http.MethodGet, http.StatusServiceUnavailable, http.StatusBadGateway)

	doc, err := c.Load(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)
	assert.Equal(t, 3, srv.Requests(http.MethodGet))
}

func TestLoadGivesUpAfterMaxAttempts(t *testing.T) {
	c, srv := newClient(t)
	srv.FailNext(http.MethodGet, 502, 502, 502, 502)

	_, err := c.Load(context.Background(), "flow-1")
	require.Error(t, err)
	assert.True(t, fcerrors.IsRetryable(err))
	assert.Equal(t, 3, srv.Requests(http.MethodGet))
}

func TestLoadWithNoRetryTriesOnce(t *testing.T) {
	c, srv := newClient(t, remote.WithRetry(fcerrors.NoRetry))
	srv.FailNext(http.MethodGet, 502)

	_, err := c.Load(context.Background(), "flow-1")
	require.Error(t, err)
	assert.True(t, fcerrors.IsPersistence(err))
	assert.Equal(t, 1, srv.Requests(http.MethodGet))
}

func TestLoadMalformedBody(t *testing.T) {
	c, srv := newClient(t)
	srv.PutRaw("flow-1", `{"nodes": "nope"}`)

	_, err := c.Load(context.Background(), "flow-1")
	require.Error(t, err)
	assert.Equal(t, fcerrors.CategoryMalformed, fcerrors.Categorize(err))
	assert.Equal(t, 1, srv.Requests(http.MethodGet))
}

func TestLoadCancelled(t *testing.T) {
	c, _ := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Load(ctx, "flow-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveRoundTrip(t *testing.T) {
	c, srv := newClient(t)
	req := sampleRequest()

	require.NoError(t, c.Save(context.Background(), "flow-1", req))

	stored, ok := srv.Document("flow-1")
	require.True(t, ok)
	assert.Equal(t, "Greeting", stored.Name)

	doc, err := c.Load(context.Background(), "flow-1")
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, wire.ID("start-1"), doc.Nodes[0].ID)
	assert.Equal(t, 200.0, doc.Nodes[1].Position.X)
	require.Len(t, doc.Edges, 1)
	assert.Equal(t, wire.ID("start-1"), doc.Edges[0].SourceID)
	assert.Equal(t, wire.ID("end-1"), doc.Edges[0].TargetID)
	assert.Equal(t, "end-1", doc.Edges[0].DataString(wire.DataTargetID))
}

func TestSaveDroppedConnection(t *testing.T) {
	c, srv := newClient(t)
	srv.FailNext(http.MethodPut, 0)

	err := c.Save(context.Background(), "flow-1", sampleRequest())
	require.Error(t, err)
	assert.True(t, fcerrors.IsRetryable(err))
	assert.Equal(t, 1, srv.Requests(http.MethodPut))
}

func TestSaveIsNotRetried(t *testing.T) {
	c, srv := newClient(t)
	srv.FailNext(http.MethodPut, http.StatusInternalServerError)

	err := c.Save(context.Background(), "flow-1", sampleRequest())
	require.Error(t, err)
	assert.True(t, fcerrors.IsRetryable(err))
	assert.Equal(t, 1, srv.Requests(http.MethodPut))

	_, ok := srv.Document("flow-1")
	assert.False(t, ok)
}

func TestSaveBreakerOpens(t *testing.T) {
	c, srv := newClient(t, remote.WithBreaker(remote.BreakerConfig{
		ConsecutiveFailures: 2,
		MaxRequests:         1,
		Timeout:             time.Hour,
	}))
	srv.FailNext(http.MethodPut, 500, 503)

	for i := 0; i < 2; i++ {
		require.Error(t, c.Save(context.Background(), "flow-1", sampleRequest()))
	}
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())

	err := c.Save(context.Background(), "flow-1", sampleRequest())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, fcerrors.IsRetryable(err))
	assert.Equal(t, 2, srv.Requests(http.MethodPut), "open breaker fails fast")
}

func TestSaveClientErrorsDoNotTrip(t *testing.T) {
	c, srv := newClient(t, remote.WithBreaker(remote.BreakerConfig{ConsecutiveFailures: 2, Timeout: time.Hour}))
	srv.FailNext(http.MethodPut, 400, 409, 422)

	for i := 0; i < 3; i++ {
		err := c.Save(context.Background(), "flow-1", sampleRequest())
		require.Error(t, err)
		assert.False(t, fcerrors.IsRetryable(err))
	}
	assert.Equal(t, gobreaker.StateClosed, c.BreakerState())
	assert.NoError(t, c.Save(context.Background(), "flow-1", sampleRequest()))
}

func TestUnauthorized(t *testing.T) {
	var fired atomic.Int32
	c, srv := newClient(t, remote.OnUnauthorized(func() { fired.Add(1) }))
	srv.RequireToken("s3cret")

	err := c.Save(context.Background(), "flow-1", sampleRequest())
	require.Error(t, err)
	assert.True(t, fcerrors.IsUnauthorized(err))

	_, err = c.Load(context.Background(), "flow-1")
	assert.True(t, fcerrors.IsUnauthorized(err))
	assert.Equal(t, int32(2), fired.Load())
	assert.Equal(t, 1, srv.Requests(http.MethodGet), "401 is not retried")
}

func TestBearerToken(t *testing.T) {
	token := "s3cret"
	c, srv := newClient(t, remote.WithToken(func() string { return token }))
	srv.RequireToken("s3cret")

	require.NoError(t, c.Save(context.Background(), "flow-1", sampleRequest()))
	_, err := c.Load(context.Background(), "flow-1")
	require.NoError(t, err)
}
