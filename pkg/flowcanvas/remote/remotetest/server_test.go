package remotetest_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/remote/remotetest"
)

func serve(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

var jsonHeader = map[string]string{"Content-Type": "application/json"}

func TestHandlerGetMissing(t *testing.T) {
	h := remotetest.NewHandler()

	rec := serve(h, http.MethodGet, "/flows/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "flow nope not found", errorBody(t, rec))
}

func TestHandlerPutThenGet(t *testing.T) {
	h := remotetest.NewHandler()
	body := `{"name":"Demo","nodes":[{"id":"a","type":"start","position":{"x":1,"y":2},"data":{}}],"edges":[]}`

	rec := serve(h, http.MethodPut, "/flows/f1", body, jsonHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"f1","nodes":1,"edges":0}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/flows/f1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, rec.Body.String())

	doc, ok := h.Document("f1")
	require.True(t, ok)
	assert.Equal(t, "Demo", doc.Name)
	assert.Len(t, doc.Nodes, 1)
}

func TestHandlerPutValidation(t *testing.T) {
	h := remotetest.NewHandler()

	rec := serve(h, http.MethodPut, "/flows/f1", `{}`, nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = serve(h, http.MethodPut, "/flows/f1", `{"nodes":`, jsonHeader)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, ok := h.Document("f1")
	assert.False(t, ok)
}

func TestHandlerFailNext(t *testing.T) {
	h := remotetest.NewHandler()
	h.PutRaw("f1", `{"nodes":[],"edges":[]}`)
	h.FailNext(http.MethodGet, http.StatusServiceUnavailable, http.StatusTooManyRequests)

	assert.Equal(t, http.StatusServiceUnavailable, serve(h, http.MethodGet, "/flows/f1", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, http.MethodGet, "/flows/f1", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/flows/f1", "", nil).Code)

	assert.Equal(t, 3, h.Requests(http.MethodGet))
	assert.Zero(t, h.Requests(http.MethodPut))
}

func TestHandlerRequireToken(t *testing.T) {
	h := remotetest.NewHandler()
	h.PutRaw("f1", `{"nodes":[],"edges":[]}`)
	h.RequireToken("abc")

	rec := serve(h, http.MethodGet, "/flows/f1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token expired", errorBody(t, rec))

	rec = serve(h, http.MethodGet, "/flows/f1", "", map[string]string{"Authorization": "Bearer abc"})
	assert.Equal(t, http.StatusOK, rec.Code)

	h.RequireToken("")
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/flows/f1", "", nil).Code)
}

func TestServerDropsConnection(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()
	srv.FailNext(http.MethodPut, 0)

	req, err := http.NewRequest(http.MethodPut, srv.URL()+"/flows/f1", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	assert.Error(t, err)
}
