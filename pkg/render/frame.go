package render

import (
	"fmt"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/graph"
)

// Defaults for attributes a node or edge does not set.
const (
	DefaultNodeSize  = 1.0
	DefaultNodeColor = "#999999"
	DefaultEdgeColor = "#cccccc"
	DefaultEdgeSize  = 0.5
)

// Reducer returns the attributes an element is drawn with. Reducers must not
// modify attrs.
type Reducer func(key string, attrs graph.Attributes) graph.Attributes

// FrameNode is a drawable node.
type FrameNode struct {
	Key       string          `json:"key"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Size      float64         `json:"size"`
	Color     string          `json:"color"`
	Type      config.NodeType `json:"type"`
	Label     string          `json:"label,omitempty"`
	ShowLabel bool            `json:"showLabel,omitempty"`
	Backdrop  string          `json:"backdrop,omitempty"`
	Z         float64         `json:"z,omitempty"`
}

// FrameEdge is a drawable edge.
type FrameEdge struct {
	Key    string  `json:"key"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Size   float64 `json:"size"`
	Color  string  `json:"color"`
	Z      float64 `json:"z,omitempty"`
}

// Frame is everything a renderer needs to draw one picture. Hidden elements
// are omitted.
type Frame struct {
	Nodes []FrameNode `json:"nodes"`
	Edges []FrameEdge `json:"edges"`
}

// BuildFrame computes the draw list of g. Nil reducers leave attributes as
// they are. Nodes without coordinates are placed at the origin.
func BuildFrame(g *graph.Graph, s Settings, nodeReducer, edgeReducer Reducer) Frame {
	f := Frame{Nodes: []FrameNode{}, Edges: []FrameEdge{}}
	visible := make(map[string]bool, g.Order())

	for _, key := range g.Nodes() {
		attrs, _ := g.NodeAttributes(key)
		if nodeReducer != nil {
			attrs = nodeReducer(key, attrs)
		}
		if attrs.Bool(graph.AttrHidden) {
			continue
		}
		visible[key] = true
		f.Nodes = append(f.Nodes, frameNode(key, attrs, s))
	}

	if s.HideEdges {
		return f
	}
	for _, key := range g.Edges() {
		src, tgt, _ := g.Extremities(key)
		if !visible[src] || !visible[tgt] {
			continue
		}
		attrs, _ := g.EdgeAttributes(key)
		if edgeReducer != nil {
			attrs = edgeReducer(key, attrs)
		}
		if attrs.Bool(graph.AttrHidden) {
			continue
		}
		if s.RenderJustImportantEdges && !attrs.Bool(graph.AttrImportant) {
			continue
		}
		e := FrameEdge{Key: key, Source: src, Target: tgt, Size: DefaultEdgeSize, Color: DefaultEdgeColor}
		if v, ok := attrs.Float(graph.AttrSize); ok {
			e.Size = v
		}
		if v, ok := attrs.String(graph.AttrColor); ok && v != "" {
			e.Color = v
		}
		e.Z, _ = attrs.Float(graph.AttrZ)
		f.Edges = append(f.Edges, e)
	}
	return f
}

func frameNode(key string, attrs graph.Attributes, s Settings) FrameNode {
	n := FrameNode{Key: key, Size: DefaultNodeSize, Color: DefaultNodeColor, Type: s.DefaultNodeType}
	n.X, _ = attrs.Float(graph.AttrX)
	n.Y, _ = attrs.Float(graph.AttrY)
	if v, ok := attrs.Float(graph.AttrSize); ok {
		n.Size = v
	}
	if v, ok := attrs.String(graph.AttrColor); ok && v != "" {
		n.Color = v
	}
	if v, ok := attrs.String(graph.AttrType); ok && v != "" {
		n.Type = config.NodeType(v)
	}
	if n.Type == "" {
		n.Type = config.NodeTypeCircle
	}
	n.Z, _ = attrs.Float(graph.AttrZ)

	n.Label = key
	if v, ok := attrs[graph.AttrLabel]; ok && v != nil {
		n.Label = fmt.Sprint(v)
	}
	switch s.LabelSelector {
	case config.LabelSelectorAll:
		n.ShowLabel = true
	case config.LabelSelectorImportant:
		n.ShowLabel = attrs.Bool(graph.AttrImportant)
	default:
		n.ShowLabel = n.Z > 0
	}

	if s.RenderNodeBackdrop {
		if cat, ok := attrs[graph.AttrCategory]; ok && cat != nil {
			n.Backdrop = s.ClusterColors[fmt.Sprint(cat)]
		}
	}
	return n
}

// Node returns the frame node with the given key.
func (f Frame) Node(key string) (FrameNode, bool) {
	for _, n := range f.Nodes {
		if n.Key == key {
			return n, true
		}
	}
	return FrameNode{}, false
}
