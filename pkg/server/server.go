// Package server exposes a graph session over HTTP.
//
// The API is a chi router over a single [session.Session]. Requests and
// responses are JSON. Mutations answer with {"applied": bool}: false means
// the session refused the operation, typically because the layout worker is
// running. Precondition violations and invalid input answer with the status
// from [errors.HTTPStatus] and a body of {"code", "error"}.
//
// Session events are streamed to clients on GET /events as Server-Sent
// Events. Slow clients miss events instead of stalling the session.
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/webgraph/pkg/session"
	"github.com/matzehuels/webgraph/pkg/store"
)

// Server serves one session.
type Server struct {
	session *session.Session
	store   store.Store
	ttl     time.Duration
	hub     *Hub
	logger  *log.Logger
	unsub   func()
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables POST /save. Saved documents expire after ttl; zero never
// expires.
func WithStore(st store.Store, ttl time.Duration) Option {
	return func(s *Server) {
		s.store, s.ttl = st, ttl
	}
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server for sess and starts forwarding its events to SSE
// clients. Call Close to stop forwarding.
func New(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		session: sess,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger)
	s.unsub = sess.SubscribeAll(s.hub.Broadcast)
	return s
}

// Close stops forwarding session events.
func (s *Server) Close() {
	s.unsub()
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/graph", s.handleGraph)
	r.Get("/state", s.handleState)
	r.Get("/frame", s.handleFrame)
	r.Get("/events", s.hub.ServeHTTP)

	r.Route("/nodes", func(r chi.Router) {
		r.Post("/", s.handleMergeNodes)
		r.Delete("/", s.handleDropNodes)
	})
	r.Route("/edges", func(r chi.Router) {
		r.Post("/", s.handleMergeEdges)
		r.Put("/", s.handleReplaceEdges)
	})
	r.Route("/layout", func(r chi.Router) {
		r.Post("/", s.handleSetLayout)
		r.Post("/reapply", s.handleReapplyLayout)
	})
	r.Post("/worker/{action}", s.handleWorker)

	r.Route("/settings", func(r chi.Router) {
		r.Post("/edges", s.handleToggleEdges)
		r.Post("/important", s.handleToggleImportant)
		r.Put("/nodetype", s.handleNodeType)
		r.Put("/appmode", s.handleAppMode)
	})

	r.Post("/undo", s.handleUndo)
	r.Post("/redo", s.handleRedo)
	r.Delete("/history", s.handleClearHistory)

	r.Post("/hover/{key}", s.handleEnter)
	r.Delete("/hover", s.handleLeave)

	r.Post("/save", s.handleSave)
	return r
}
