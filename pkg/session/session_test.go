package session

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/events"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/history"
	"github.com/matzehuels/webgraph/pkg/layout"
	"github.com/matzehuels/webgraph/pkg/render"
)

// =============================================================================
// Helpers
// =============================================================================

func historyConfig() config.Configuration {
	c := config.Default()
	c.EnableHistory = true
	return c
}

func newSession(t *testing.T, cfg config.Configuration, opts ...Option) *Session {
	t.Helper()
	s, err := New(nil, cfg, append([]Option{WithAnimationDuration(0)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(s.Destroy)
	return s
}

func mustRender(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Render(context.Background()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
}

func nodes(keys ...string) []graph.SerializedNode {
	out := make([]graph.SerializedNode, len(keys))
	for i, k := range keys {
		out[i] = graph.SerializedNode{Key: k}
	}
	return out
}

func edge(key, source, target string) graph.SerializedEdge {
	return graph.SerializedEdge{Key: key, Source: source, Target: target}
}

type state struct {
	nodes map[string]graph.Attributes
	edges map[string]graph.SerializedEdge
	cfg   config.Configuration
}

func capture(s *Session) state {
	exp := s.ExportGraph(false)
	st := state{
		nodes: make(map[string]graph.Attributes, len(exp.Nodes)),
		edges: make(map[string]graph.SerializedEdge, len(exp.Edges)),
		cfg:   s.Configuration(),
	}
	for _, n := range exp.Nodes {
		st.nodes[n.Key] = n.Attributes
	}
	for _, e := range exp.Edges {
		st.edges[e.Key] = e
	}
	return st
}

func assertState(t *testing.T, got, want state) {
	t.Helper()
	if len(got.nodes) != len(want.nodes) {
		t.Errorf("node count = %d, want %d", len(got.nodes), len(want.nodes))
	}
	for k, attrs := range want.nodes {
		if !attrs.Equal(got.nodes[k]) {
			t.Errorf("node %s = %v, want %v", k, got.nodes[k], attrs)
		}
	}
	if len(got.edges) != len(want.edges) {
		t.Errorf("edge count = %d, want %d", len(got.edges), len(want.edges))
	}
	for k, e := range want.edges {
		g := got.edges[k]
		if g.Source != e.Source || g.Target != e.Target || !e.Attributes.Equal(g.Attributes) {
			t.Errorf("edge %s = %+v, want %+v", k, g, e)
		}
	}
	if !reflect.DeepEqual(got.cfg, want.cfg) {
		t.Errorf("config = %+v, want %+v", got.cfg, want.cfg)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func counter(s *Session, name events.Name) *atomic.Int32 {
	var n atomic.Int32
	s.Subscribe(name, func(events.Event) { n.Add(1) })
	return &n
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestRenderTwice(t *testing.T) {
	s := newSession(t, config.Default())
	rendered := counter(s, events.Rendered)
	mustRender(t, s)
	if rendered.Load() != 1 {
		t.Errorf("rendered events = %d, want 1", rendered.Load())
	}
	err := s.Render(context.Background())
	if !errors.Is(err, errors.ErrCodeAlreadyRendering) {
		t.Errorf("second Render() = %v, want ALREADY_RENDERING", err)
	}
}

func TestRenderInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Layout = "spiral"
	if _, err := New(nil, cfg); !errors.Is(err, errors.ErrCodeInvalidLayout) {
		t.Errorf("New() error = %v, want INVALID_LAYOUT", err)
	}
}

func TestRenderPlacesNodes(t *testing.T) {
	s := newSession(t, config.Default())
	s.MergeNodes(nodes("a", "b", "c"), SkipHistory())
	mustRender(t, s)
	if got := len(s.Positions()); got != 3 {
		t.Errorf("positioned nodes = %d, want 3", got)
	}
}

func TestDestroy(t *testing.T) {
	rec := render.NewRecorder()
	s := newSession(t, historyConfig(), WithRenderer(rec))
	s.MergeNodes(nodes("a", "b"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b")}, SkipHistory())
	mustRender(t, s)
	s.HandleEnterNode("a")

	calls := counter(s, events.Rendered)
	s.Destroy()
	s.Destroy()

	if !rec.Killed() {
		t.Error("renderer not killed")
	}
	if s.IsRendering() {
		t.Error("IsRendering() = true after Destroy")
	}
	if len(s.HighlightedNodes()) != 0 || s.Hovered() != "" {
		t.Error("highlight state survived Destroy")
	}
	if s.bus.Count(events.Rendered) != 0 {
		t.Error("subscribers survived Destroy")
	}
	if _, err := s.Undo(); !errors.Is(err, errors.ErrCodeRenderingInactive) {
		t.Errorf("Undo() after Destroy = %v, want RENDERING_INACTIVE", err)
	}
	if err := s.Render(context.Background()); !errors.Is(err, errors.ErrCodeRenderingInactive) {
		t.Errorf("Render() after Destroy = %v, want RENDERING_INACTIVE", err)
	}
	if calls.Load() != 0 {
		t.Errorf("rendered emitted %d times after Destroy", calls.Load())
	}
}

func TestRenderContextDestroys(t *testing.T) {
	s := newSession(t, config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Render(ctx); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	cancel()
	waitFor(t, "destroy", func() bool { return !s.IsRendering() })
}

// =============================================================================
// Mutations and history
// =============================================================================

func TestInverseLaw(t *testing.T) {
	s := newSession(t, historyConfig())
	s.MergeNodes(nodes("a", "b", "c"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b"), edge("bc", "b", "c")}, SkipHistory())
	mustRender(t, s)
	before := capture(s)

	steps := []struct {
		name string
		run  func() bool
	}{
		{"merge nodes", func() bool {
			return s.MergeNodes([]graph.SerializedNode{
				{Key: "a", Attributes: graph.Attributes{graph.AttrColor: "#f00"}},
				{Key: "d", Attributes: graph.Attributes{graph.AttrLabel: "D"}},
			})
		}},
		{"merge edges", func() bool {
			return s.MergeEdges([]graph.SerializedEdge{
				{Source: "a", Target: "d", Attributes: graph.Attributes{graph.AttrWeight: 2.0}},
				{Key: "ab", Source: "a", Target: "b", Attributes: graph.Attributes{graph.AttrImportant: true}},
			})
		}},
		{"toggle edges", func() bool { return s.ToggleEdgeRendering(nil) }},
		{"toggle important", func() bool { return s.ToggleJustImportantEdgeRendering(nil) }},
		{"node type", func() bool { return s.SetAndApplyDefaultNodeType(config.NodeTypeRing) }},
		{"app mode", func() bool { return s.SetAppMode(config.AppModeStatic) }},
		{"circular", func() bool {
			ok, _ := s.SetAndApplyLayout(layout.KindCircular, layout.Config{})
			return ok
		}},
		{"drop", func() bool { return s.DropNodes([]string{"b"}) }},
		{"replace edges", func() bool { return s.ReplaceEdges([]graph.SerializedEdge{edge("x", "c", "a")}) }},
		{"forceatlas2", func() bool {
			ok, _ := s.SetAndApplyLayout(layout.KindForceAtlas2, layout.Config{
				ForceAtlas2: &layout.ForceAtlas2Options{Iterations: 5},
			})
			return ok
		}},
	}
	for _, step := range steps {
		if !step.run() {
			t.Fatalf("%s: returned false", step.name)
		}
	}
	after := capture(s)

	for _, step := range slices.Backward(steps) {
		if ok, err := s.Undo(); !ok || err != nil {
			t.Fatalf("Undo(%s) = %v, %v", step.name, ok, err)
		}
	}
	assertState(t, capture(s), before)
	if ok, _ := s.Undo(); ok {
		t.Error("Undo() past the start succeeded")
	}

	for _, step := range steps {
		if ok, err := s.Redo(); !ok || err != nil {
			t.Fatalf("Redo(%s) = %v, %v", step.name, ok, err)
		}
	}
	assertState(t, capture(s), after)
	if ok, _ := s.Redo(); ok {
		t.Error("Redo() past the end succeeded")
	}
}

func TestTruncation(t *testing.T) {
	s := newSession(t, historyConfig())
	mustRender(t, s)
	for range 3 {
		s.ToggleEdgeRendering(nil)
	}
	s.Undo()
	s.Undo()
	if !s.CanRedo() {
		t.Fatal("CanRedo() = false after undo")
	}
	s.SetAppMode(config.AppModeStatic)

	if s.CanRedo() {
		t.Error("CanRedo() = true after a new action")
	}
	if ok, _ := s.Redo(); ok {
		t.Error("Redo() succeeded after truncation")
	}
	want := []history.Entry{
		{Type: history.TypeToggleEdgeRendering},
		{Type: history.TypeAppMode},
	}
	if got := s.History(); !slices.Equal(got, want) {
		t.Errorf("History() = %v, want %v", got, want)
	}
}

func TestDropUndoScenario(t *testing.T) {
	s := newSession(t, historyConfig())
	mustRender(t, s)

	s.MergeNodes(nodes("1"))
	s.MergeNodes(nodes("2"))
	s.MergeEdges([]graph.SerializedEdge{{Source: "1", Target: "2", Attributes: graph.Attributes{graph.AttrWeight: 0.5}}})
	s.DropNodes([]string{"1"})
	check := func(step string, order, size int) {
		t.Helper()
		if s.Order() != order || s.Size() != size {
			t.Errorf("%s: order/size = %d/%d, want %d/%d", step, s.Order(), s.Size(), order, size)
		}
	}
	check("drop", 1, 0)

	s.Undo()
	check("undo drop", 2, 1)
	exp := s.ExportGraph(false)
	if w := exp.Edges[0].Attributes[graph.AttrWeight]; w != 0.5 {
		t.Errorf("restored weight = %v, want 0.5", w)
	}

	s.Undo()
	check("undo edge", 2, 0)

	s.Redo()
	s.Redo()
	check("redo", 1, 0)
}

func TestFailedUndoLeavesGraphUnchanged(t *testing.T) {
	s := newSession(t, historyConfig())
	mustRender(t, s)
	s.MergeNodes(nodes("a", "b"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b")}, SkipHistory())

	s.DropNodes([]string{"a"})
	s.DropNodes([]string{"b"}, SkipHistory())

	ok, err := s.Undo()
	if ok || err != nil {
		t.Errorf("Undo() = %v, %v, want false, nil", ok, err)
	}
	if s.Order() != 0 || s.Size() != 0 {
		t.Errorf("order/size after failed undo = %d/%d, want 0/0", s.Order(), s.Size())
	}
	if !s.CanUndo() {
		t.Error("CanUndo() = false, want the action kept active")
	}
}

func TestFailedEdgeUndoLeavesGraphUnchanged(t *testing.T) {
	s := newSession(t, historyConfig())
	mustRender(t, s)
	s.MergeNodes(nodes("a", "b", "c"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b")}, SkipHistory())

	s.MergeEdges([]graph.SerializedEdge{
		{Key: "ab", Source: "a", Target: "b", Attributes: graph.Attributes{graph.AttrWeight: 3.0}},
		edge("bc", "b", "c"),
	})
	s.DropNodes([]string{"a"}, SkipHistory())
	before := capture(s)

	if ok, _ := s.Undo(); ok {
		t.Error("Undo() = true, want false")
	}
	assertState(t, capture(s), before)
	if _, ok := s.Edge("bc"); !ok {
		t.Error("created edge dropped by failed undo")
	}
}

func TestCascadeDrop(t *testing.T) {
	s := newSession(t, historyConfig())
	s.MergeNodes(nodes("a", "b", "c"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b"), edge("ca", "c", "a"), edge("bc", "b", "c")}, SkipHistory())
	mustRender(t, s)

	if !s.DropNodes([]string{"a", "a", "missing"}) {
		t.Fatal("DropNodes() = false")
	}
	if _, ok := s.Edge("ab"); ok {
		t.Error("outgoing edge survived")
	}
	if _, ok := s.Edge("ca"); ok {
		t.Error("incoming edge survived")
	}
	if _, ok := s.Edge("bc"); !ok {
		t.Error("unrelated edge dropped")
	}
	if got := s.History(); len(got) != 1 || got[0].Type != history.TypeDropNodes {
		t.Errorf("History() = %v, want one drop-nodes action", got)
	}
	if s.DropNodes([]string{"missing"}) {
		t.Error("DropNodes() of absent keys = true")
	}
}

func TestMergeEdgesFailsClosed(t *testing.T) {
	s := newSession(t, historyConfig())
	s.MergeNodes(nodes("a", "b"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b")}, SkipHistory())
	mustRender(t, s)

	tests := []struct {
		name  string
		edges []graph.SerializedEdge
	}{
		{"Empty", nil},
		{"UnknownTarget", []graph.SerializedEdge{edge("", "a", "b"), edge("", "a", "zz")}},
		{"KeyMismatch", []graph.SerializedEdge{edge("ab", "b", "a")}},
		{"DuplicateKey", []graph.SerializedEdge{edge("k", "a", "b"), edge("k", "b", "a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.ExportGraph(false)
			if s.MergeEdges(tt.edges) {
				t.Error("MergeEdges() = true")
			}
			if !reflect.DeepEqual(s.ExportGraph(false), before) {
				t.Error("graph changed")
			}
		})
	}
	if len(s.History()) != 0 {
		t.Errorf("History() = %v, want empty", s.History())
	}
}

func TestMergeEdgesByEndpoints(t *testing.T) {
	s := newSession(t, historyConfig())
	s.MergeNodes(nodes("a", "b"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b")}, SkipHistory())
	mustRender(t, s)

	s.MergeEdges([]graph.SerializedEdge{{Source: "a", Target: "b", Attributes: graph.Attributes{graph.AttrLabel: "x"}}})
	if s.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", s.Size())
	}
	e, _ := s.Edge("ab")
	if e.Attributes[graph.AttrLabel] != "x" {
		t.Errorf("label = %v, want x", e.Attributes[graph.AttrLabel])
	}
	s.Undo()
	e, _ = s.Edge("ab")
	if _, ok := e.Attributes[graph.AttrLabel]; ok {
		t.Error("undo kept merged label")
	}
}

func TestRedoMergeRevealsHiddenEdges(t *testing.T) {
	s := newSession(t, historyConfig())
	s.MergeNodes(nodes("a", "b"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{{Key: "ab", Source: "a", Target: "b", Attributes: graph.Attributes{graph.AttrHidden: true}}}, SkipHistory())
	mustRender(t, s)

	s.MergeNodes([]graph.SerializedNode{{Key: "a", Attributes: graph.Attributes{graph.AttrColor: "#000"}}})
	if e, _ := s.Edge("ab"); e.Attributes[graph.AttrHidden] != true {
		t.Fatal("recorded merge revealed an edge")
	}
	s.Undo()
	s.Redo()
	if e, _ := s.Edge("ab"); e.Attributes[graph.AttrHidden] != false {
		t.Errorf("hidden = %v after redo, want false", e.Attributes[graph.AttrHidden])
	}
}

func TestToggleImportantForcesEdgesVisible(t *testing.T) {
	rec := render.NewRecorder()
	s := newSession(t, historyConfig(), WithRenderer(rec))
	mustRender(t, s)

	yes := true
	s.ToggleEdgeRendering(&yes)
	s.ToggleJustImportantEdgeRendering(nil)
	cfg := s.Configuration()
	if cfg.HideEdges || !cfg.RenderJustImportantEdges {
		t.Errorf("hide/important = %v/%v, want false/true", cfg.HideEdges, cfg.RenderJustImportantEdges)
	}
	if st := rec.Settings(); st.HideEdges || !st.RenderJustImportantEdges {
		t.Errorf("renderer settings = %+v", st)
	}

	s.Undo()
	cfg = s.Configuration()
	if !cfg.HideEdges || cfg.RenderJustImportantEdges {
		t.Errorf("after undo hide/important = %v/%v, want true/false", cfg.HideEdges, cfg.RenderJustImportantEdges)
	}
}

func TestHistoryErrors(t *testing.T) {
	s := newSession(t, config.Default())
	if _, err := s.Undo(); !errors.Is(err, errors.ErrCodeRenderingInactive) {
		t.Errorf("Undo() before Render = %v, want RENDERING_INACTIVE", err)
	}
	mustRender(t, s)
	if _, err := s.Redo(); !errors.Is(err, errors.ErrCodeHistoryDisabled) {
		t.Errorf("Redo() = %v, want HISTORY_DISABLED", err)
	}
	if _, err := s.ClearHistory(); !errors.Is(err, errors.ErrCodeHistoryDisabled) {
		t.Errorf("ClearHistory() = %v, want HISTORY_DISABLED", err)
	}
}

func TestClearHistory(t *testing.T) {
	s := newSession(t, historyConfig())
	mustRender(t, s)
	s.ToggleEdgeRendering(nil)
	if ok, err := s.ClearHistory(); !ok || err != nil {
		t.Fatalf("ClearHistory() = %v, %v", ok, err)
	}
	if s.CanUndo() {
		t.Error("CanUndo() = true after ClearHistory")
	}
}

func TestSkipHistory(t *testing.T) {
	s := newSession(t, historyConfig())
	mustRender(t, s)
	s.MergeNodes(nodes("a"), SkipHistory())
	s.ToggleEdgeRendering(nil, SkipHistory())
	if len(s.History()) != 0 {
		t.Errorf("History() = %v, want empty", s.History())
	}
}

func TestSetAndApplyDefaultNodeType(t *testing.T) {
	s := newSession(t, historyConfig())
	if s.SetAndApplyDefaultNodeType(config.NodeTypeRing) {
		t.Error("SetAndApplyDefaultNodeType() before Render = true")
	}
	mustRender(t, s)
	if s.SetAndApplyDefaultNodeType("hexagon") {
		t.Error("unknown node type accepted")
	}
	if !s.SetAndApplyDefaultNodeType(config.NodeTypeTriangle) {
		t.Fatal("SetAndApplyDefaultNodeType() = false")
	}
	if got := s.Configuration().DefaultNodeType; got != config.NodeTypeTriangle {
		t.Errorf("DefaultNodeType = %s, want triangle", got)
	}
}

func TestToggleNodeBackdropRendering(t *testing.T) {
	rec := render.NewRecorder()
	s := newSession(t, config.Default(), WithRenderer(rec))
	if err := s.ToggleNodeBackdropRendering(nil, nil); !errors.Is(err, errors.ErrCodeRenderingInactive) {
		t.Errorf("before Render = %v, want RENDERING_INACTIVE", err)
	}
	mustRender(t, s)
	if err := s.ToggleNodeBackdropRendering(map[string]string{"1": "nope"}, nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad color = %v, want INVALID_INPUT", err)
	}
	if err := s.ToggleNodeBackdropRendering(map[string]string{"1": "#abcdef"}, nil); err != nil {
		t.Fatalf("ToggleNodeBackdropRendering() error: %v", err)
	}
	st := rec.Settings()
	if !st.RenderNodeBackdrop || st.ClusterColors["1"] != "#abcdef" {
		t.Errorf("settings = %+v", st)
	}
	if len(s.History()) != 0 {
		t.Error("backdrop toggle recorded")
	}
}

func TestHighlightNode(t *testing.T) {
	rec := render.NewRecorder()
	s := newSession(t, config.Default(), WithRenderer(rec))
	s.MergeNodes(nodes("a"), SkipHistory())
	mustRender(t, s)

	if !s.HighlightNode("a", 20*time.Millisecond) {
		t.Fatal("HighlightNode() = false")
	}
	if !slices.Equal(rec.Highlighted(), []string{"a"}) {
		t.Errorf("Highlighted() = %v, want [a]", rec.Highlighted())
	}
	waitFor(t, "unhighlight", func() bool { return len(rec.Highlighted()) == 0 })
	if s.HighlightNode("missing", time.Millisecond) {
		t.Error("HighlightNode(missing) = true")
	}
}

func TestExportGraphExcludeEdges(t *testing.T) {
	s := newSession(t, config.Default())
	s.MergeNodes(nodes("a", "b"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b")}, SkipHistory())

	exp := s.ExportGraph(true)
	if len(exp.Nodes) != 2 || len(exp.Edges) != 0 {
		t.Errorf("export = %d nodes, %d edges, want 2, 0", len(exp.Nodes), len(exp.Edges))
	}
	if s.Size() != 1 {
		t.Error("ExportGraph(true) dropped live edges")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	cfg := historyConfig()
	cfg.HideEdges = true
	s := newSession(t, cfg, WithID("sess-1"))
	s.MergeNodes([]graph.SerializedNode{{Key: "a", Attributes: graph.Attributes{graph.AttrX: 1.0, graph.AttrY: 2.0}}}, SkipHistory())

	doc := s.Document(time.Hour)
	if doc.ID != "sess-1" || doc.ExpiresAt.IsZero() {
		t.Fatalf("Document() = %+v", doc)
	}
	restored, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument() error: %v", err)
	}
	t.Cleanup(restored.Destroy)
	if restored.ID() != "sess-1" {
		t.Errorf("ID() = %s, want sess-1", restored.ID())
	}
	assertState(t, capture(restored), capture(s))
}

// =============================================================================
// Hover highlight
// =============================================================================

func TestHoverHighlight(t *testing.T) {
	s := newSession(t, historyConfig())
	s.MergeNodes(nodes("a", "b", "c", "x"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b"), edge("ca", "c", "a"), edge("bx", "b", "x")}, SkipHistory())
	mustRender(t, s)

	s.HandleEnterNode("a")
	sorted := func(keys []string) []string { slices.Sort(keys); return keys }
	if got := sorted(s.HighlightedNodes()); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("HighlightedNodes() = %v, want [a b c]", got)
	}
	if got := sorted(s.HighlightedEdges()); !slices.Equal(got, []string{"ab", "ca"}) {
		t.Errorf("HighlightedEdges() = %v, want [ab ca]", got)
	}

	frame := s.Frame()
	if n, _ := frame.Node("b"); n.Color != config.DefaultSubGraphHighlightColor {
		t.Errorf("frame color of b = %q, want highlight color", n.Color)
	}

	s.DropNodes([]string{"b"})
	if slices.Contains(s.HighlightedNodes(), "b") || slices.Contains(s.HighlightedEdges(), "ab") {
		t.Error("dropped elements still highlighted")
	}

	s.HandleLeaveNode("a")
	if len(s.HighlightedNodes()) != 0 || len(s.HighlightedEdges()) != 0 || s.Hovered() != "" {
		t.Error("Leave did not clear highlight")
	}
}

func TestHoverWithHiddenEdges(t *testing.T) {
	cfg := config.Default()
	cfg.HideEdges = true
	s := newSession(t, cfg)
	s.MergeNodes(nodes("a", "b"), SkipHistory())
	s.MergeEdges([]graph.SerializedEdge{edge("ab", "a", "b")}, SkipHistory())
	mustRender(t, s)

	s.HandleEnterNode("a")
	if got := s.HighlightedNodes(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("HighlightedNodes() = %v, want [a]", got)
	}
}

// =============================================================================
// Concurrency
// =============================================================================

func TestConcurrentMutations(t *testing.T) {
	s := newSession(t, historyConfig())
	mustRender(t, s)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i))
			s.MergeNodes(nodes(key))
			s.HandleEnterNode(key)
			s.HandleLeaveNode(key)
			_ = s.Frame()
		}()
	}
	wg.Wait()
	if s.Order() != 8 {
		t.Errorf("Order() = %d, want 8", s.Order())
	}
	if got := len(s.History()); got != 8 {
		t.Errorf("History() has %d actions, want 8", got)
	}
}

func TestHandlersMayCallBack(t *testing.T) {
	s := newSession(t, historyConfig())
	s.MergeNodes(nodes("a"), SkipHistory())
	var order int
	s.Subscribe(events.EnterNode, func(e events.Event) {
		order = s.Order()
	})
	mustRender(t, s)
	s.HandleEnterNode("a")
	if order != 1 {
		t.Errorf("Order() from handler = %d, want 1", order)
	}
}
