// Package session implements the graph session engine.
//
// A [Session] owns one mutable graph together with everything that evolves
// alongside it: the undo/redo log, the layout controller (synchronous
// animated layouts and the background ForceAtlas2 worker), the hover
// highlight sets and the node widgets (info box, context menu). Multiple
// sessions are independent values; nothing is shared between them.
//
// # Concurrency
//
// Every public method is safe for concurrent use. Operations are serialized
// by a session lock. Events and renderer notifications raised while the lock
// is held are queued and delivered after it is released, so event handlers
// and renderers may call back into the session.
//
// Layout animations and the background worker run on their own goroutines
// and apply positions under the same lock. The controller is always in one
// of three states:
//
//	Idle               nothing runs in the background
//	SynchronousLayout  a layout animation is in flight
//	WorkerActive       the ForceAtlas2 worker owns node positions
//
// Mutations, undo/redo and synchronous layouts are valid in Idle and
// SynchronousLayout (a newer layout finishes the in-flight animation
// instantly). In WorkerActive they are rejected with a false result.
//
// # Errors
//
// Precondition violations (rendering not started, history disabled, worker
// not enabled) are returned as coded errors from pkg/errors. Contention
// (worker active, empty input, nothing to undo) is reported as false.
package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/webgraph/pkg/cache"
	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/events"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/highlight"
	"github.com/matzehuels/webgraph/pkg/history"
	"github.com/matzehuels/webgraph/pkg/layout"
	"github.com/matzehuels/webgraph/pkg/observability"
	"github.com/matzehuels/webgraph/pkg/render"
	"github.com/matzehuels/webgraph/pkg/store"
)

// State is the layout controller state.
type State int

// Controller states.
const (
	StateIdle State = iota
	StateSynchronousLayout
	StateWorkerActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSynchronousLayout:
		return "synchronous-layout"
	case StateWorkerActive:
		return "worker-active"
	}
	return "unknown"
}

// Session is one interactive graph session.
type Session struct {
	mu      sync.Mutex
	pending []func()

	id       string
	g        *graph.Graph
	cfg      config.Configuration
	renderer render.Renderer
	logger   *log.Logger
	bus      events.Bus
	hist     *history.Manager
	hl       *highlight.Engine
	hovered  string

	layoutCache    *cache.LayoutCache
	anim           layout.AnimationOptions
	workerInterval time.Duration
	infoBoxCfg     InfoBoxConfig
	menuCfg        ContextMenuConfig

	ctx        context.Context
	cancel     context.CancelFunc
	stopOnDone func() bool

	rendering bool
	destroyed bool
	state     State

	// in-flight layout animation
	animSeq    uint64
	animCancel context.CancelFunc
	animTarget graph.Positions

	// background worker
	worker        *layout.Worker
	workerRun     uint64
	workerUpdates <-chan layout.Update
	workerStarted time.Time
	workerIters   int
	workerAction  *history.SetLayoutViaWorkerChange
	initialTimer  *time.Timer

	// widgets and pointer input
	pointer     pointerState
	infoBox     *InfoBox
	infoVisible bool
	infoSeq     uint64
	menu        *OpenMenu
	menuNode    string
	timers      map[*time.Timer]struct{}
}

// New creates a session over g. A nil graph starts empty. The configuration
// is validated and copied.
func New(g *graph.Graph, cfg config.Configuration, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if g == nil {
		g = graph.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:             store.NewID(),
		g:              g,
		cfg:            cfg.Clone(),
		renderer:       render.Nop{},
		logger:         log.NewWithOptions(io.Discard, log.Options{Level: log.WarnLevel}),
		hl:             highlight.New(),
		anim:           layout.DefaultAnimationOptions(),
		workerInterval: layout.DefaultWorkerInterval,
		ctx:            ctx,
		cancel:         cancel,
		timers:         make(map[*time.Timer]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// =============================================================================
// Lock and deferred effects
// =============================================================================

func (s *Session) lock() { s.mu.Lock() }

// unlock releases the session and runs the effects queued while it was held.
func (s *Session) unlock() {
	effects := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range effects {
		fn()
	}
}

func (s *Session) post(fn func()) {
	s.pending = append(s.pending, fn)
}

func (s *Session) emit(e events.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.post(func() { s.bus.Emit(e) })
}

func (s *Session) process() {
	if r := s.renderer; s.rendering {
		s.post(r.Process)
	}
}

func (s *Session) refresh() {
	if r := s.renderer; s.rendering {
		s.post(r.Refresh)
	}
}

func (s *Session) scheduleRender() {
	if r := s.renderer; s.rendering {
		s.post(r.ScheduleRender)
	}
}

func (s *Session) pushSettings() {
	if r, st := s.renderer, render.SettingsFrom(s.cfg); s.rendering {
		s.post(func() { r.UpdateSettings(st) })
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

// Render starts the session: it pushes the display settings to the renderer,
// creates the history log when enabled, and then either auto-runs the
// background worker (when an initial worker runtime is configured) or applies
// the configured layout from random start positions. It emits rendered.
//
// The session is destroyed when ctx is cancelled.
func (s *Session) Render(ctx context.Context) error {
	s.lock()
	defer s.unlock()

	if s.destroyed {
		return errors.New(errors.ErrCodeRenderingInactive, "session destroyed")
	}
	if s.rendering {
		return errors.New(errors.ErrCodeAlreadyRendering, "already rendering")
	}
	s.rendering = true

	s.pushSettings()
	s.process()

	if s.cfg.EnableHistory {
		s.hist = history.NewManager()
	}

	fa2 := s.cfg.LayoutConfig.ForceAtlas2Options()
	if s.cfg.InitializeForceAtlas2Worker {
		s.worker = layout.NewWorker(fa2.Settings, layout.WithInterval(s.workerInterval))
	}
	if s.cfg.InitializeForceAtlas2Worker && fa2.InitialWorkerRuntime > 0 {
		if err := s.runInitialWorker(fa2.WorkerRuntime()); err != nil {
			s.rendering = false
			return err
		}
	} else if _, err := s.applyLayout(s.cfg.Layout, s.cfg.LayoutConfig, true); err != nil {
		s.rendering = false
		return err
	}

	if ctx != nil {
		s.stopOnDone = context.AfterFunc(ctx, s.Destroy)
	}
	s.logger.Debug("session rendered", "id", s.id, "nodes", s.g.Order(), "edges", s.g.Size(), "layout", s.cfg.Layout)
	s.emit(events.Event{Name: events.Rendered})
	return nil
}

// Destroy stops and kills the worker, cancels animations and timers,
// discards history and highlight state, kills the renderer and removes every
// subscriber. Later calls are no-ops.
func (s *Session) Destroy() {
	s.lock()
	defer s.unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true

	if s.worker != nil {
		s.worker.Kill()
	}
	s.workerRun++
	s.workerUpdates = nil
	s.workerAction = nil
	if s.initialTimer != nil {
		s.initialTimer.Stop()
	}
	s.cancelAnimation()
	for t := range s.timers {
		t.Stop()
	}
	clear(s.timers)
	if s.stopOnDone != nil {
		s.stopOnDone()
	}
	s.cancel()

	s.hist = nil
	s.hl.Clear()
	s.hovered = ""
	s.infoBox, s.infoVisible, s.menu = nil, false, nil
	s.pointer = pointerState{}
	s.state = StateIdle

	if s.rendering {
		s.post(s.renderer.Kill)
	}
	s.rendering = false
	s.post(s.bus.Clear)
	s.logger.Debug("session destroyed", "id", s.id)
}

// =============================================================================
// Events
// =============================================================================

// Subscribe registers h for events named name.
func (s *Session) Subscribe(name events.Name, h events.Handler) (unsubscribe func()) {
	return s.bus.Subscribe(name, h)
}

// SubscribeAll registers h for every session event.
func (s *Session) SubscribeAll(h events.Handler) (unsubscribe func()) {
	return s.bus.SubscribeAll(h)
}

// =============================================================================
// Read helpers
// =============================================================================

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the layout controller state.
func (s *Session) State() State {
	s.lock()
	defer s.unlock()
	return s.state
}

// IsRendering reports whether Render succeeded and Destroy was not called.
func (s *Session) IsRendering() bool {
	s.lock()
	defer s.unlock()
	return s.rendering
}

// Configuration returns a copy of the current configuration.
func (s *Session) Configuration() config.Configuration {
	s.lock()
	defer s.unlock()
	return s.cfg.Clone()
}

// LayoutState describes the active layout.
type LayoutState struct {
	Kind             layout.Kind   `json:"kind"`
	Config           layout.Config `json:"config"`
	State            string        `json:"state"`
	WorkerActive     bool          `json:"workerActive"`
	WorkerIterations int           `json:"workerIterations,omitempty"`
}

// LayoutState returns the active layout and controller state.
func (s *Session) LayoutState() LayoutState {
	s.lock()
	defer s.unlock()
	return LayoutState{
		Kind:             s.cfg.Layout,
		Config:           s.cfg.LayoutConfig.Clone(),
		State:            s.state.String(),
		WorkerActive:     s.state == StateWorkerActive,
		WorkerIterations: s.workerIters,
	}
}

// CanUndo reports whether an undo could succeed right now.
func (s *Session) CanUndo() bool {
	s.lock()
	defer s.unlock()
	return s.hist != nil && s.state != StateWorkerActive && s.hist.CanUndo()
}

// CanRedo reports whether a redo could succeed right now.
func (s *Session) CanRedo() bool {
	s.lock()
	defer s.unlock()
	return s.hist != nil && s.state != StateWorkerActive && s.hist.CanRedo()
}

// History summarizes the log. It is empty when history is disabled.
func (s *Session) History() []history.Entry {
	s.lock()
	defer s.unlock()
	if s.hist == nil {
		return nil
	}
	return s.hist.Entries()
}

// Hovered returns the hovered node, or "".
func (s *Session) Hovered() string {
	s.lock()
	defer s.unlock()
	return s.hovered
}

// HighlightedNodes returns the highlighted node keys.
func (s *Session) HighlightedNodes() []string {
	s.lock()
	defer s.unlock()
	return s.hl.Nodes()
}

// HighlightedEdges returns the highlighted edge keys.
func (s *Session) HighlightedEdges() []string {
	s.lock()
	defer s.unlock()
	return s.hl.Edges()
}

// Frame returns the current draw list with highlight reducers applied.
func (s *Session) Frame() render.Frame {
	s.lock()
	defer s.unlock()
	colors := highlight.Colors{
		Highlight:          s.cfg.SubGraphHighlightColor,
		ImportantNeighbors: s.cfg.ImportantNeighborsColor,
	}
	nodeReducer := func(key string, attrs graph.Attributes) graph.Attributes {
		return s.hl.ReduceNode(s.g, key, attrs, colors)
	}
	edgeReducer := func(key string, attrs graph.Attributes) graph.Attributes {
		return s.hl.ReduceEdge(s.g, key, attrs, colors)
	}
	return render.BuildFrame(s.g, render.SettingsFrom(s.cfg), nodeReducer, edgeReducer)
}

// Positions returns the coordinates of every positioned node.
func (s *Session) Positions() graph.Positions {
	s.lock()
	defer s.unlock()
	return s.g.Positions()
}

// Order returns the number of nodes.
func (s *Session) Order() int {
	s.lock()
	defer s.unlock()
	return s.g.Order()
}

// Size returns the number of edges.
func (s *Session) Size() int {
	s.lock()
	defer s.unlock()
	return s.g.Size()
}

// Node returns a copy of a node's attributes.
func (s *Session) Node(key string) (graph.Attributes, bool) {
	s.lock()
	defer s.unlock()
	return s.g.NodeAttributes(key)
}

// Edge returns a copy of an edge with its endpoints.
func (s *Session) Edge(key string) (graph.SerializedEdge, bool) {
	s.lock()
	defer s.unlock()
	source, target, ok := s.g.Extremities(key)
	if !ok {
		return graph.SerializedEdge{}, false
	}
	attrs, _ := s.g.EdgeAttributes(key)
	return graph.SerializedEdge{Key: key, Source: source, Target: target, Attributes: attrs}, true
}

// ExportGraph returns the serialized graph. With excludeEdges the edge list
// is left empty; the session graph itself is never modified.
func (s *Session) ExportGraph(excludeEdges bool) graph.Serialized {
	s.lock()
	defer s.unlock()
	out := s.g.Export()
	if excludeEdges {
		out.Edges = []graph.SerializedEdge{}
	}
	return out
}

// =============================================================================
// Shared helpers
// =============================================================================

func (s *Session) hooks() observability.SessionHooks {
	return observability.Session()
}

// workerBusy reports contention with the background worker and records the
// rejection.
func (s *Session) workerBusy(op string) bool {
	if s.state != StateWorkerActive {
		return false
	}
	s.reject(op, "worker active")
	return true
}

func (s *Session) reject(op, reason string) {
	s.logger.Debug("operation rejected", "op", op, "reason", reason)
	s.hooks().OnRejected(s.ctx, op, reason)
}

func (s *Session) addAction(c history.Change) *history.Action {
	if s.hist == nil {
		return nil
	}
	a := s.hist.Add(c)
	s.hooks().OnAction(s.ctx, string(c.Type()))
	return a
}

func (s *Session) nodeHidden(key string) bool {
	v, ok := s.g.NodeAttribute(key, graph.AttrHidden)
	b, isBool := v.(bool)
	return ok && isBool && b
}
