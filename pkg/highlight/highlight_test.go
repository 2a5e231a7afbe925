package highlight

import (
	"slices"
	"testing"

	"github.com/matzehuels/webgraph/pkg/graph"
)

type edgeSpec struct {
	key, src, tgt string
	important     bool
}

func build(t *testing.T, nodes map[string]graph.Attributes, edges []edgeSpec) *graph.Graph {
	t.Helper()
	g := graph.New()
	keys := make([]string, 0, len(nodes))
	for k := range nodes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := g.AddNode(k, nodes[k]); err != nil {
			t.Fatalf("AddNode(%s): %v", k, err)
		}
	}
	for _, e := range edges {
		attrs := graph.Attributes{}
		if e.important {
			attrs[graph.AttrImportant] = true
		}
		if _, err := g.AddEdge(e.key, e.src, e.tgt, attrs); err != nil {
			t.Fatalf("AddEdge(%s): %v", e.key, err)
		}
	}
	return g
}

func sorted(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return out
}

func TestEnterDirectNeighbors(t *testing.T) {
	g := build(t, map[string]graph.Attributes{
		"a": nil, "b": nil, "c": nil,
		"h": {graph.AttrHidden: true},
		"x": nil,
	}, []edgeSpec{
		{"ab", "a", "b", false},
		{"ca", "c", "a", false},
		{"ah", "a", "h", false},
		{"bx", "b", "x", false},
	})

	e := New()
	e.Enter(g, "a", true, Options{})

	if got, want := sorted(e.Nodes()), []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if got, want := sorted(e.Edges()), []string{"ab", "ca"}; !slices.Equal(got, want) {
		t.Errorf("Edges() = %v, want %v", got, want)
	}
	if e.Hovered() != "a" {
		t.Errorf("Hovered() = %q, want a", e.Hovered())
	}
}

func TestEnterWithoutTraversal(t *testing.T) {
	g := build(t, map[string]graph.Attributes{"a": nil, "b": nil}, []edgeSpec{{"ab", "a", "b", false}})
	e := New()
	e.Enter(g, "a", false, Options{})
	if !slices.Equal(e.Nodes(), []string{"a"}) || len(e.Edges()) != 0 {
		t.Errorf("sets = %v, %v, want [a], []", e.Nodes(), e.Edges())
	}
}

func TestJustImportantEdges(t *testing.T) {
	g := build(t, map[string]graph.Attributes{"a": nil, "b": nil, "c": nil}, []edgeSpec{
		{"ab", "a", "b", true},
		{"ab2", "a", "b", false},
		{"ac", "a", "c", false},
	})
	e := New()
	e.Enter(g, "a", true, Options{JustImportantEdges: true})

	if got, want := sorted(e.Nodes()), []string{"a", "b"}; !slices.Equal(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if got, want := e.Edges(), []string{"ab"}; !slices.Equal(got, want) {
		t.Errorf("Edges() = %v, want %v", got, want)
	}
}

func TestImportantNeighbors(t *testing.T) {
	nodes := map[string]graph.Attributes{
		"a": nil, "b": nil,
		"m":  {graph.AttrImportant: true},
		"mh": {graph.AttrImportant: true, graph.AttrHidden: true},
		"n":  nil,
	}
	edges := []edgeSpec{
		{"ab", "a", "b", false},
		{"bm", "b", "m", false},
		{"mb", "m", "b", false},
		{"bmh", "b", "mh", false},
		{"bn", "b", "n", false},
	}

	tests := []struct {
		name      string
		opts      Options
		wantNodes []string
		wantEdges []string
	}{
		{"Disabled", Options{}, []string{"a", "b"}, []string{"ab"}},
		{"Outgoing", Options{IncludeImportantNeighbors: true}, []string{"a", "b", "m"}, []string{"ab", "bm"}},
		{"Bidirectional", Options{IncludeImportantNeighbors: true, Bidirectional: true}, []string{"a", "b", "m"}, []string{"ab", "bm", "mb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, nodes, edges)
			e := New()
			e.Enter(g, "a", true, tt.opts)
			if got := sorted(e.Nodes()); !slices.Equal(got, tt.wantNodes) {
				t.Errorf("Nodes() = %v, want %v", got, tt.wantNodes)
			}
			if got := sorted(e.Edges()); !slices.Equal(got, tt.wantEdges) {
				t.Errorf("Edges() = %v, want %v", got, tt.wantEdges)
			}
		})
	}
}

func TestSecondHopNeedsAnIncludedEdge(t *testing.T) {
	g := build(t, map[string]graph.Attributes{
		"a": nil, "b": nil, "m": {graph.AttrImportant: true},
	}, []edgeSpec{
		{"ab", "a", "b", true},
		{"mb", "m", "b", false},
	})
	e := New()
	e.Enter(g, "a", true, Options{IncludeImportantNeighbors: true})
	if e.HasNode("m") {
		t.Error("m highlighted without a followed edge")
	}

	e.Enter(g, "a", true, Options{IncludeImportantNeighbors: true, Bidirectional: true, JustImportantEdges: true})
	if e.HasNode("m") || e.HasEdge("mb") {
		t.Error("unimportant second-hop edge followed in important-only mode")
	}
}

func TestHighlightSymmetry(t *testing.T) {
	opts := Options{Bidirectional: true, IncludeImportantNeighbors: true}
	forward := build(t, map[string]graph.Attributes{"a": nil, "b": nil}, []edgeSpec{{"e", "a", "b", false}})
	backward := build(t, map[string]graph.Attributes{"a": nil, "b": nil}, []edgeSpec{{"e", "b", "a", false}})

	ef, eb := New(), New()
	ef.Enter(forward, "a", true, opts)
	eb.Enter(backward, "a", true, opts)

	if !slices.Equal(sorted(ef.Edges()), sorted(eb.Edges())) {
		t.Errorf("edges differ by direction: %v vs %v", ef.Edges(), eb.Edges())
	}
	if !slices.Equal(sorted(ef.Nodes()), sorted(eb.Nodes())) {
		t.Errorf("nodes differ by direction: %v vs %v", ef.Nodes(), eb.Nodes())
	}
}

func TestComputeToleratesMissingNodes(t *testing.T) {
	g := build(t, map[string]graph.Attributes{"a": nil}, nil)
	e := New()
	e.Enter(g, "gone", true, Options{IncludeImportantNeighbors: true})
	if !slices.Equal(e.Nodes(), []string{"gone"}) {
		t.Errorf("Nodes() = %v, want [gone]", e.Nodes())
	}
	e.Leave(g)
	if e.Hovered() != "" || len(e.Nodes()) != 0 {
		t.Error("Leave() did not clear state")
	}
}

func TestLeaveResetsZ(t *testing.T) {
	g := build(t, map[string]graph.Attributes{
		"a": {graph.AttrZ: 1}, "b": nil, "c": {graph.AttrZ: 3},
	}, []edgeSpec{{"ab", "a", "b", false}})
	_ = g.SetEdgeAttribute("ab", graph.AttrZ, 1)

	e := New()
	e.Enter(g, "a", true, Options{})
	e.Leave(g)

	if v, _ := g.NodeAttribute("a", graph.AttrZ); v != 0 {
		t.Errorf("a.z = %v, want 0", v)
	}
	if _, ok := g.NodeAttribute("b", graph.AttrZ); ok {
		t.Error("b.z was added")
	}
	if v, _ := g.NodeAttribute("c", graph.AttrZ); v != 3 {
		t.Errorf("c.z = %v, want 3 (not highlighted)", v)
	}
	if v, _ := g.EdgeAttribute("ab", graph.AttrZ); v != 0 {
		t.Errorf("ab.z = %v, want 0", v)
	}
}

func TestForget(t *testing.T) {
	g := build(t, map[string]graph.Attributes{"a": nil, "b": nil}, []edgeSpec{{"ab", "a", "b", false}})
	e := New()
	e.Enter(g, "a", true, Options{})
	e.Forget([]string{"b"}, []string{"ab"})
	if e.HasNode("b") || e.HasEdge("ab") {
		t.Error("Forget() kept dropped elements")
	}
	e.Forget([]string{"a"}, nil)
	if e.Hovered() != "" {
		t.Errorf("Hovered() = %q after forgetting it", e.Hovered())
	}
}

func TestReducers(t *testing.T) {
	g := build(t, map[string]graph.Attributes{
		"a": {graph.AttrColor: "#000"}, "b": nil, "m": {graph.AttrImportant: true}, "z": nil,
	}, []edgeSpec{
		{"ab", "a", "b", false},
		{"bm", "b", "m", false},
	})
	e := New()
	e.Enter(g, "a", true, Options{IncludeImportantNeighbors: true})
	colors := Colors{Highlight: "#fc9044", ImportantNeighbors: "#123456"}

	tests := []struct {
		node string
		want any
	}{
		{"a", "#fc9044"},
		{"b", "#fc9044"},
		{"m", "#123456"},
		{"z", nil},
	}
	for _, tt := range tests {
		attrs, _ := g.NodeAttributes(tt.node)
		got := e.ReduceNode(g, tt.node, attrs, colors)[graph.AttrColor]
		if got != tt.want {
			t.Errorf("ReduceNode(%s).color = %v, want %v", tt.node, got, tt.want)
		}
	}

	if got := e.ReduceEdge(g, "ab", graph.Attributes{}, colors)[graph.AttrColor]; got != "#fc9044" {
		t.Errorf("ReduceEdge(ab).color = %v, want #fc9044", got)
	}
	if got := e.ReduceEdge(g, "bm", graph.Attributes{}, colors)[graph.AttrColor]; got != "#123456" {
		t.Errorf("ReduceEdge(bm).color = %v, want #123456", got)
	}

	plain := Colors{Highlight: "#fc9044"}
	if got := e.ReduceNode(g, "m", graph.Attributes{}, plain)[graph.AttrColor]; got != "#fc9044" {
		t.Errorf("ReduceNode(m) without second-hop color = %v, want #fc9044", got)
	}
	attrs, _ := g.NodeAttributes("a")
	reduced := e.ReduceNode(g, "a", attrs, colors)
	if reduced[graph.AttrZ] != 1 {
		t.Errorf("z = %v, want 1", reduced[graph.AttrZ])
	}
	if attrs[graph.AttrColor] != "#000" {
		t.Error("ReduceNode modified its input")
	}
}
