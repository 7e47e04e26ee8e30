// Package remotetest is an in-memory implementation of the flow
// persistence API, for tests and local development.
//
//	srv := remotetest.NewServer()
//	defer srv.Close()
//	srv.Put("flow-1", doc)
//	client, _ := remote.New(srv.URL())
//
// Failures can be injected per method with FailNext.
package remotetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/randalmurphal/flowcanvas/pkg/flowcanvas/wire"
)

// Handler serves GET and PUT /flows/{graphID} from memory.
// It is safe for concurrent use.
type Handler struct {
	mu       sync.Mutex
	flows    map[string]json.RawMessage
	failures map[string][]int
	token    string
	counts   map[string]int

	router chi.Router
}

// NewHandler creates an empty API handler.
func NewHandler() *Handler {
	h := &Handler{
		flows:    make(map[string]json.RawMessage),
		failures: make(map[string][]int),
		counts:   make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(h.inject)
	r.Use(h.authenticate)
	r.Get("/flows/{graphID}", h.getFlow)
	r.Put("/flows/{graphID}", h.putFlow)
	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Put seeds the document for graphID.
func (h *Handler) Put(graphID string, doc wire.FlowDocument) {
	data, _ := json.Marshal(doc)
	h.mu.Lock()
	h.flows[graphID] = data
	h.mu.Unlock()
}

// PutRaw seeds graphID with a literal JSON body.
func (h *Handler) PutRaw(graphID, body string) {
	h.mu.Lock()
	h.flows[graphID] = json.RawMessage(body)
	h.mu.Unlock()
}

// Document returns the stored document for graphID decoded as a load
// response.
func (h *Handler) Document(graphID string) (wire.FlowDocument, bool) {
	h.mu.Lock()
	data, ok := h.flows[graphID]
	h.mu.Unlock()
	if !ok {
		return wire.FlowDocument{}, false
	}
	var doc wire.FlowDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return wire.FlowDocument{}, false
	}
	return doc, true
}

// FailNext makes the next len(statuses) requests with method answer with
// those statuses, in order. Status 0 drops the connection.
func (h *Handler) FailNext(method string, statuses ...int) {
	h.mu.Lock()
	h.failures[method] = append(h.failures[method], statuses...)
	h.mu.Unlock()
}

// RequireToken makes every request without "Bearer token" fail with 401.
// An empty token turns the check off.
func (h *Handler) RequireToken(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

// Requests returns how many requests with method reached the handler,
// failed ones included.
func (h *Handler) Requests(method string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[method]
}

func (h *Handler) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.counts[r.Method]++
		status, fail := 0, false
		if q := h.failures[r.Method]; len(q) > 0 {
			status, fail = q[0], true
			h.failures[r.Method] = q[1:]
		}
		h.mu.Unlock()

		if !fail {
			next.ServeHTTP(w, r)
			return
		}
		if status == 0 {
			hijack(w)
			return
		}
		writeError(w, status, http.StatusText(status))
	})
}

func hijack(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		writeError(w, http.StatusBadGateway, "connection dropped")
		return
	}
	conn, _, err := hj.Hijack()
	if err == nil {
		_ = conn.Close()
	}
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		token := h.token
		h.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) getFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "graphID")
	h.mu.Lock()
	data, ok := h.flows[id]
	h.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "flow "+id+" not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (h *Handler) putFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "graphID")
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "expected application/json")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req wire.SaveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid flow document")
		return
	}

	h.mu.Lock()
	h.flows[id] = json.RawMessage(body)
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":    id,
		"nodes": len(req.Nodes),
		"edges": len(req.Edges),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Server runs a Handler on a local httptest server.
type Server struct {
	*Handler
	srv *httptest.Server
}

// NewServer starts a server with an empty Handler.
func NewServer() *Server {
	h := NewHandler()
	return &Server{Handler: h, srv: httptest.NewServer(h)}
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}
