package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/render"
)

func sampleFrame() render.Frame {
	return render.Frame{
		Nodes: []render.FrameNode{
			{Key: "a", X: 0.5, Y: 0.25, Size: 1, Color: "#ff0000", Type: config.NodeTypeRectangle, Label: "Alpha", ShowLabel: true},
			{Key: "b", X: 1, Y: 1, Size: 2, Color: "#00ff00", Type: config.NodeTypeRing, Label: "Beta", Backdrop: "#0000ff"},
		},
		Edges: []render.FrameEdge{{Key: "ab", Source: "a", Target: "b", Size: 1, Color: "#cccccc"}},
	}
}

func TestToDOT_Basic(t *testing.T) {
	dot := ToDOT(sampleFrame(), Options{})

	for _, want := range []string{
		"digraph G",
		"layout=neato",
		`"a" [pos="200.00,100.00!"`,
		`"a" -> "b"`,
		"shape=box",
		"shape=doublecircle",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() output missing %q", want)
		}
	}
}

func TestToDOT_Labels(t *testing.T) {
	dot := ToDOT(sampleFrame(), Options{})
	if !strings.Contains(dot, `xlabel="Alpha"`) {
		t.Error("ToDOT() missing shown label")
	}
	if strings.Contains(dot, `xlabel="Beta"`) {
		t.Error("ToDOT() printed a hidden label")
	}

	dot = ToDOT(sampleFrame(), Options{Labels: true})
	if !strings.Contains(dot, `xlabel="Beta"`) {
		t.Error("ToDOT() with Labels missing label")
	}
}

func TestToDOT_Backdrop(t *testing.T) {
	dot := ToDOT(sampleFrame(), Options{Scale: 1})
	if !strings.Contains(dot, `color="#0000ff", penwidth=4`) {
		t.Error("ToDOT() missing backdrop outline")
	}
	if !strings.Contains(dot, `pos="1.00,1.00!"`) {
		t.Error("ToDOT() ignored Scale")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00" xmlns="x"><g/></svg>`)
	got := string(normalizeViewBox(in))
	if !strings.Contains(got, `viewBox="0 0 10.00 20.00" width="10" height="20"`) {
		t.Errorf("normalizeViewBox() = %s", got)
	}
	if string(normalizeViewBox([]byte("<svg>"))) != "<svg>" {
		t.Error("normalizeViewBox() changed an svg without viewBox")
	}
}
