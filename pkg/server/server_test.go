package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/events"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/observability"
	"github.com/matzehuels/webgraph/pkg/session"
	"github.com/matzehuels/webgraph/pkg/store"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func newServer(t *testing.T, cfg config.Configuration, render bool, opts ...Option) (*Server, http.Handler) {
	t.Helper()
	sess, err := session.New(nil, cfg, session.WithAnimationDuration(0))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if render {
		if err := sess.Render(context.Background()); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	srv := New(sess, append([]Option{WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(func() {
		srv.Close()
		sess.Destroy()
	})
	return srv, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func historyConfig() config.Configuration {
	cfg := config.Default()
	cfg.EnableHistory = true
	return cfg
}

func TestMergeAndExport(t *testing.T) {
	_, h := newServer(t, historyConfig(), true)

	rec := do(t, h, http.MethodPost, "/nodes", `{"nodes":[{"key":"a"},{"key":"b"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /nodes status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decodeBody[appliedResponse](t, rec); !got.Applied {
		t.Error("POST /nodes applied = false, want true")
	}

	rec = do(t, h, http.MethodPost, "/edges", `{"edges":[{"key":"e","source":"a","target":"b"}]}`)
	if got := decodeBody[appliedResponse](t, rec); !got.Applied {
		t.Errorf("POST /edges applied = false, body %s", rec.Body)
	}

	g := decodeBody[graph.Serialized](t, do(t, h, http.MethodGet, "/graph", ""))
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("GET /graph = %d nodes %d edges, want 2 and 1", len(g.Nodes), len(g.Edges))
	}
	g = decodeBody[graph.Serialized](t, do(t, h, http.MethodGet, "/graph?excludeEdges=true", ""))
	if len(g.Edges) != 0 {
		t.Errorf("excludeEdges returned %d edges", len(g.Edges))
	}

	rec = do(t, h, http.MethodPost, "/undo", "")
	if got := decodeBody[appliedResponse](t, rec); !got.Applied {
		t.Errorf("POST /undo applied = false, body %s", rec.Body)
	}
	g = decodeBody[graph.Serialized](t, do(t, h, http.MethodGet, "/graph", ""))
	if len(g.Edges) != 0 {
		t.Errorf("after undo %d edges, want 0", len(g.Edges))
	}

	st := decodeBody[stateResponse](t, do(t, h, http.MethodGet, "/state", ""))
	if !st.CanRedo || len(st.History) != 2 {
		t.Errorf("state = %+v, want redo available and 2 entries", st)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		render bool
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"HistoryDisabled", true, http.MethodPost, "/undo", "", http.StatusPreconditionFailed, "HISTORY_DISABLED"},
		{"NotRendering", false, http.MethodPost, "/redo", "", http.StatusPreconditionFailed, "RENDERING_INACTIVE"},
		{"WorkerNotEnabled", true, http.MethodPost, "/worker/start", "", http.StatusPreconditionFailed, "WORKER_NOT_ENABLED"},
		{"UnknownWorkerAction", true, http.MethodPost, "/worker/pause", "", http.StatusNotFound, "NOT_FOUND"},
		{"BadBody", true, http.MethodPost, "/nodes", `{"nodes":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"BadLayout", true, http.MethodPost, "/layout", `{"kind":"spiral"}`, http.StatusBadRequest, "INVALID_LAYOUT"},
		{"BadNodeType", true, http.MethodPut, "/settings/nodetype", `{"type":"hexagon"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"UnknownHover", true, http.MethodPost, "/hover/missing", "", http.StatusNotFound, "NODE_NOT_FOUND"},
		{"NoStore", true, http.MethodPost, "/save", "", http.StatusNotImplemented, "UNSUPPORTED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newServer(t, config.Default(), tt.render)
			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
			if got := decodeBody[errorResponse](t, rec); string(got.Code) != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
		})
	}
}

func TestRefusedMutationIsNotAnError(t *testing.T) {
	_, h := newServer(t, config.Default(), true)
	rec := do(t, h, http.MethodDelete, "/nodes", `{"keys":["missing"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeBody[appliedResponse](t, rec); got.Applied {
		t.Error("dropping a missing node reported applied")
	}
}

func TestSettingsEndpoints(t *testing.T) {
	srv, h := newServer(t, config.Default(), true)

	do(t, h, http.MethodPost, "/settings/edges", "")
	do(t, h, http.MethodPut, "/settings/nodetype", `{"type":"ring"}`)
	do(t, h, http.MethodPut, "/settings/appmode", `{"mode":"static"}`)

	cfg := srv.session.Configuration()
	if !cfg.HideEdges {
		t.Error("HideEdges = false after toggle")
	}
	if cfg.DefaultNodeType != config.NodeTypeRing {
		t.Errorf("DefaultNodeType = %q, want ring", cfg.DefaultNodeType)
	}
	if cfg.AppMode != config.AppModeStatic {
		t.Errorf("AppMode = %q, want static", cfg.AppMode)
	}

	do(t, h, http.MethodPost, "/settings/important", `{"value":true}`)
	cfg = srv.session.Configuration()
	if !cfg.RenderJustImportantEdges || cfg.HideEdges {
		t.Errorf("important = %v hide = %v, want true and false", cfg.RenderJustImportantEdges, cfg.HideEdges)
	}
}

func TestSave(t *testing.T) {
	st := store.NewMemoryStore()
	srv, h := newServer(t, config.Default(), true, WithStore(st, time.Hour))
	do(t, h, http.MethodPost, "/nodes", `{"nodes":[{"key":"a"}]}`)

	rec := do(t, h, http.MethodPost, "/save", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /save status = %d, body %s", rec.Code, rec.Body)
	}
	got := decodeBody[map[string]string](t, rec)
	if got["id"] != srv.session.ID() {
		t.Errorf("id = %q, want %q", got["id"], srv.session.ID())
	}
	doc, err := st.Get(context.Background(), got["id"])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(doc.Graph.Nodes) != 1 {
		t.Errorf("saved %d nodes, want 1", len(doc.Graph.Nodes))
	}
}

func TestHoverHighlights(t *testing.T) {
	srv, h := newServer(t, config.Default(), true)
	do(t, h, http.MethodPost, "/nodes", `{"nodes":[{"key":"a"},{"key":"b"},{"key":"c"}]}`)
	do(t, h, http.MethodPost, "/edges", `{"edges":[{"source":"a","target":"b"}]}`)

	got := decodeBody[map[string][]string](t, do(t, h, http.MethodPost, "/hover/a", ""))
	if len(got["nodes"]) != 2 || len(got["edges"]) != 1 {
		t.Errorf("hover = %v, want a, b and one edge", got)
	}
	if rec := do(t, h, http.MethodDelete, "/hover", ""); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE /hover status = %d", rec.Code)
	}
	if srv.session.Hovered() != "" {
		t.Error("hover survived DELETE /hover")
	}
}

func TestEventStream(t *testing.T) {
	srv, h := newServer(t, config.Default(), true)
	do(t, h, http.MethodPost, "/nodes", `{"nodes":[{"key":"a"}]}`)

	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	if !lines.Scan() || lines.Text() != ": connected" {
		t.Fatalf("first line = %q, want connected comment", lines.Text())
	}
	deadline := time.Now().Add(5 * time.Second)
	for srv.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	do(t, h, http.MethodPost, "/hover/a", "")
	for lines.Scan() {
		if lines.Text() == "event: "+string(events.EnterNode) {
			return
		}
	}
	t.Errorf("no enterNode event on the stream: %v", lines.Err())
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub(quietLogger())
	ch, cancel := hub.Subscribe()
	for range clientBuffer + 10 {
		hub.Broadcast(events.Event{Name: events.Rendered})
	}
	if len(ch) != clientBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), clientBuffer)
	}
	cancel()
	cancel()
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after cancel", hub.ClientCount())
	}
}

type httpRecorder struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
}

func (r *httpRecorder) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, method+" "+route)
}

func TestInstrumentReportsRoutePattern(t *testing.T) {
	rec := &httpRecorder{}
	observability.SetHTTPHooks(rec)
	t.Cleanup(observability.Reset)

	_, h := newServer(t, config.Default(), true)
	do(t, h, http.MethodPost, "/worker/toggle", "")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.routes) != 1 || rec.routes[0] != "POST /worker/{action}" {
		t.Errorf("routes = %v, want [POST /worker/{action}]", rec.routes)
	}
}
