package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/history"
	"github.com/matzehuels/webgraph/pkg/layout"
	"github.com/matzehuels/webgraph/pkg/session"
)

// =============================================================================
// Request and response bodies
// =============================================================================

type nodesRequest struct {
	Nodes       []graph.SerializedNode `json:"nodes"`
	SkipHistory bool                   `json:"skipHistory,omitempty"`
}

type dropRequest struct {
	Keys        []string `json:"keys"`
	SkipHistory bool     `json:"skipHistory,omitempty"`
}

type edgesRequest struct {
	Edges       []graph.SerializedEdge `json:"edges"`
	SkipHistory bool                   `json:"skipHistory,omitempty"`
}

type layoutRequest struct {
	Kind        layout.Kind   `json:"kind"`
	Config      layout.Config `json:"config"`
	SkipHistory bool          `json:"skipHistory,omitempty"`
}

type toggleRequest struct {
	Value       *bool `json:"value,omitempty"`
	SkipHistory bool  `json:"skipHistory,omitempty"`
}

type nodeTypeRequest struct {
	Type        config.NodeType `json:"type"`
	SkipHistory bool            `json:"skipHistory,omitempty"`
}

type appModeRequest struct {
	Mode        config.AppMode `json:"mode"`
	SkipHistory bool           `json:"skipHistory,omitempty"`
}

type appliedResponse struct {
	Applied bool `json:"applied"`
}

type stateResponse struct {
	ID        string               `json:"id"`
	Rendering bool                 `json:"rendering"`
	Layout    session.LayoutState  `json:"layout"`
	CanUndo   bool                 `json:"canUndo"`
	CanRedo   bool                 `json:"canRedo"`
	History   []history.Entry      `json:"history"`
	Hovered   string               `json:"hovered,omitempty"`
	InfoBox   *session.InfoBox     `json:"infoBox,omitempty"`
	Config    config.Configuration `json:"config"`
}

type errorResponse struct {
	Code  errors.Code `json:"code,omitempty"`
	Error string      `json:"error"`
}

// =============================================================================
// Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Code: errors.GetCode(err), Error: errors.UserMessage(err)})
}

func (s *Server) applied(w http.ResponseWriter, r *http.Request, ok bool, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appliedResponse{Applied: ok})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func mutation(skip bool) []session.MutationOption {
	if skip {
		return []session.MutationOption{session.SkipHistory()}
	}
	return nil
}

// =============================================================================
// Read endpoints
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	exclude, _ := strconv.ParseBool(r.URL.Query().Get("excludeEdges"))
	writeJSON(w, http.StatusOK, s.session.ExportGraph(exclude))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := s.session
	var box *session.InfoBox
	if b, visible := sess.InfoBox(); visible {
		box = &b
	}
	writeJSON(w, http.StatusOK, stateResponse{
		ID:        sess.ID(),
		Rendering: sess.IsRendering(),
		Layout:    sess.LayoutState(),
		CanUndo:   sess.CanUndo(),
		CanRedo:   sess.CanRedo(),
		History:   sess.History(),
		Hovered:   sess.Hovered(),
		InfoBox:   box,
		Config:    sess.Configuration(),
	})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Frame())
}

// =============================================================================
// Mutations
// =============================================================================

func (s *Server) handleMergeNodes(w http.ResponseWriter, r *http.Request) {
	var req nodesRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.applied(w, r, s.session.MergeNodes(req.Nodes, mutation(req.SkipHistory)...), nil)
}

func (s *Server) handleDropNodes(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.applied(w, r, s.session.DropNodes(req.Keys, mutation(req.SkipHistory)...), nil)
}

func (s *Server) handleMergeEdges(w http.ResponseWriter, r *http.Request) {
	var req edgesRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.applied(w, r, s.session.MergeEdges(req.Edges, mutation(req.SkipHistory)...), nil)
}

func (s *Server) handleReplaceEdges(w http.ResponseWriter, r *http.Request) {
	var req edgesRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.applied(w, r, s.session.ReplaceEdges(req.Edges, mutation(req.SkipHistory)...), nil)
}

func (s *Server) handleToggleEdges(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.applied(w, r, s.session.ToggleEdgeRendering(req.Value, mutation(req.SkipHistory)...), nil)
}

func (s *Server) handleToggleImportant(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.applied(w, r, s.session.ToggleJustImportantEdgeRendering(req.Value, mutation(req.SkipHistory)...), nil)
}

func (s *Server) handleNodeType(w http.ResponseWriter, r *http.Request) {
	var req nodeTypeRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !config.ValidNodeTypes[req.Type] {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid node type %q", req.Type))
		return
	}
	s.applied(w, r, s.session.SetAndApplyDefaultNodeType(req.Type, mutation(req.SkipHistory)...), nil)
}

func (s *Server) handleAppMode(w http.ResponseWriter, r *http.Request) {
	var req appModeRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !config.ValidAppModes[req.Mode] {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid app mode %q", req.Mode))
		return
	}
	s.applied(w, r, s.session.SetAppMode(req.Mode, mutation(req.SkipHistory)...), nil)
}

// =============================================================================
// Layout and worker
// =============================================================================

func (s *Server) handleSetLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ok, err := s.session.SetAndApplyLayout(req.Kind, req.Config, mutation(req.SkipHistory)...)
	s.applied(w, r, ok, err)
}

func (s *Server) handleReapplyLayout(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ok, err := s.session.ReapplyLayout(mutation(req.SkipHistory)...)
	s.applied(w, r, ok, err)
}

func (s *Server) handleWorker(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	opts := mutation(req.SkipHistory)

	var (
		ok  bool
		err error
	)
	switch action := chi.URLParam(r, "action"); action {
	case "start":
		ok, err = s.session.StartForceAtlas2Worker(opts...)
	case "stop":
		ok, err = s.session.StopForceAtlas2Worker(opts...)
	case "toggle":
		ok, err = s.session.ToggleForceAtlas2Worker(opts...)
	default:
		err = errors.New(errors.ErrCodeNotFound, "unknown worker action %q", action)
	}
	s.applied(w, r, ok, err)
}

// =============================================================================
// History
// =============================================================================

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	ok, err := s.session.Undo()
	s.applied(w, r, ok, err)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	ok, err := s.session.Redo()
	s.applied(w, r, ok, err)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	ok, err := s.session.ClearHistory()
	s.applied(w, r, ok, err)
}

// =============================================================================
// Hover and persistence
// =============================================================================

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := s.session.Node(key); !ok {
		s.fail(w, r, errors.New(errors.ErrCodeNodeNotFound, "node %q not found", key))
		return
	}
	s.session.HandleEnterNode(key)
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": s.session.HighlightedNodes(),
		"edges": s.session.HighlightedEdges(),
	})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if key := s.session.Hovered(); key != "" {
		s.session.HandleLeaveNode(key)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.fail(w, r, errors.New(errors.ErrCodeUnsupported, "no session store configured"))
		return
	}
	doc := s.session.Document(s.ttl)
	if err := s.store.Set(r.Context(), doc); err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInternal, err, "save session %s", doc.ID))
		return
	}
	s.logger.Info("session saved", "id", doc.ID, "nodes", len(doc.Graph.Nodes))
	writeJSON(w, http.StatusOK, map[string]string{"id": doc.ID})
}
