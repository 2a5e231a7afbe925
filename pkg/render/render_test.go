package render

import (
	"testing"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/graph"
)

func sample(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	nodes := map[string]graph.Attributes{
		"a": {graph.AttrX: 1.0, graph.AttrY: 2.0, graph.AttrSize: 3.0, graph.AttrLabel: "A", graph.AttrCategory: 1, graph.AttrImportant: true},
		"b": {graph.AttrType: "ring"},
		"h": {graph.AttrHidden: true},
	}
	for _, k := range []string{"a", "b", "h"} {
		if err := g.AddNode(k, nodes[k]); err != nil {
			t.Fatal(err)
		}
	}
	edges := []struct {
		key, src, tgt string
		attrs         graph.Attributes
	}{
		{"ab", "a", "b", graph.Attributes{graph.AttrImportant: true}},
		{"ba", "b", "a", nil},
		{"ah", "a", "h", nil},
	}
	for _, e := range edges {
		if _, err := g.AddEdge(e.key, e.src, e.tgt, e.attrs); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestBuildFrame(t *testing.T) {
	g := sample(t)
	f := BuildFrame(g, Settings{DefaultNodeType: config.NodeTypeTriangle}, nil, nil)

	if len(f.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(f.Nodes))
	}
	a, _ := f.Node("a")
	if a.X != 1 || a.Y != 2 || a.Size != 3 || a.Label != "A" || a.Type != config.NodeTypeTriangle {
		t.Errorf("node a = %+v", a)
	}
	b, _ := f.Node("b")
	if b.Type != config.NodeTypeRing || b.Color != DefaultNodeColor || b.Label != "b" {
		t.Errorf("node b = %+v", b)
	}
	if len(f.Edges) != 2 {
		t.Errorf("len(Edges) = %d, want 2 (edge to hidden node omitted)", len(f.Edges))
	}
}

func TestBuildFrameEdgeFlags(t *testing.T) {
	g := sample(t)
	tests := []struct {
		name     string
		settings Settings
		want     int
	}{
		{"All", Settings{}, 2},
		{"Hidden", Settings{HideEdges: true}, 0},
		{"JustImportant", Settings{RenderJustImportantEdges: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(BuildFrame(g, tt.settings, nil, nil).Edges); got != tt.want {
				t.Errorf("len(Edges) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildFrameLabelsAndBackdrop(t *testing.T) {
	g := sample(t)
	s := Settings{
		LabelSelector:      config.LabelSelectorImportant,
		RenderNodeBackdrop: true,
		ClusterColors:      map[string]string{"1": "#abcdef"},
	}
	f := BuildFrame(g, s, nil, nil)
	a, _ := f.Node("a")
	b, _ := f.Node("b")
	if !a.ShowLabel || b.ShowLabel {
		t.Errorf("ShowLabel = %v, %v, want true, false", a.ShowLabel, b.ShowLabel)
	}
	if a.Backdrop != "#abcdef" || b.Backdrop != "" {
		t.Errorf("Backdrop = %q, %q", a.Backdrop, b.Backdrop)
	}
}

func TestBuildFrameReducers(t *testing.T) {
	g := sample(t)
	reduce := func(key string, attrs graph.Attributes) graph.Attributes {
		out := attrs.Clone()
		out[graph.AttrColor] = "#fc9044"
		out[graph.AttrZ] = 1
		return out
	}
	f := BuildFrame(g, Settings{}, reduce, reduce)
	for _, n := range f.Nodes {
		if n.Color != "#fc9044" || !n.ShowLabel {
			t.Errorf("node %s = %+v, want reduced color and label", n.Key, n)
		}
	}
	for _, e := range f.Edges {
		if e.Color != "#fc9044" || e.Z != 1 {
			t.Errorf("edge %s = %+v, want reduced", e.Key, e)
		}
	}
	if c, _ := g.NodeAttribute("a", graph.AttrColor); c != nil {
		t.Error("reducer result leaked into the graph")
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	var _ Renderer = r
	var _ Renderer = Nop{}

	r.Process()
	r.Refresh()
	r.Refresh()
	r.HighlightNode("a")
	r.HighlightNode("a")
	r.UpdateSettings(Settings{HideEdges: true})

	p, rf, s := r.Counts()
	if p != 1 || rf != 2 || s != 0 {
		t.Errorf("Counts() = %d, %d, %d, want 1, 2, 0", p, rf, s)
	}
	if got := r.Highlighted(); len(got) != 1 {
		t.Errorf("Highlighted() = %v, want [a]", got)
	}
	r.UnhighlightNode("a")
	if len(r.Highlighted()) != 0 || !r.Settings().HideEdges {
		t.Error("unexpected recorder state")
	}
	r.Kill()
	if !r.Killed() {
		t.Error("Killed() = false")
	}
}
