// Package highlight computes the hover subgraph of a graph session.
//
// When the pointer enters a node, [Engine.Enter] collects the hovered node,
// its visible direct neighbors and the connecting edges. Optionally it also
// collects, for each direct neighbor, the neighbor's important neighbors (the
// second hop). The resulting sets are transient: they are never persisted and
// never recorded in history. Renderers consult them through [Engine.ReduceNode]
// and [Engine.ReduceEdge].
//
// Hover and mutation are not mutually exclusive, so every graph read is
// guarded by an existence check. A hovered node or neighbor that has been
// dropped simply contributes nothing.
package highlight

import (
	"slices"

	"github.com/matzehuels/webgraph/pkg/graph"
)

// Options control the traversal.
type Options struct {
	// JustImportantEdges restricts the subgraph to edges flagged important.
	JustImportantEdges bool
	// IncludeImportantNeighbors extends the subgraph by one hop to the
	// important neighbors of each direct neighbor.
	IncludeImportantNeighbors bool
	// Bidirectional also follows second-hop edges pointing back at the
	// direct neighbor.
	Bidirectional bool
}

// Colors are the reducer colors. An empty ImportantNeighbors color disables
// the distinct second-hop coloring.
type Colors struct {
	Highlight          string
	ImportantNeighbors string
}

// Engine owns the highlight sets of one session.
//
// The zero value is ready for use. Engine is not safe for concurrent use.
type Engine struct {
	hovered string
	nodes   keySet
	edges   keySet
}

// New returns an empty engine.
func New() *Engine {
	return &Engine{}
}

// Enter rebuilds the highlight sets for a hover over key. When traverse is
// false, only the hovered node itself is highlighted.
func (e *Engine) Enter(g *graph.Graph, key string, traverse bool, opts Options) {
	e.Clear()
	e.hovered = key
	if traverse {
		e.Compute(g, key, opts)
	}
	e.nodes.add(key)
}

// Leave clears the hover state. The z attribute of every previously
// highlighted element that still exists is reset to baseline.
func (e *Engine) Leave(g *graph.Graph) {
	if e.hovered != "" {
		resetNodeZ(g, e.hovered)
	}
	for _, k := range e.nodes.keys {
		resetNodeZ(g, k)
	}
	for _, k := range e.edges.keys {
		if v, ok := g.EdgeAttribute(k, graph.AttrZ); ok && !isZero(v) {
			_ = g.SetEdgeAttribute(k, graph.AttrZ, 0)
		}
	}
	e.Clear()
}

// Compute adds the subgraph around hovered to the current sets.
func (e *Engine) Compute(g *graph.Graph, hovered string, opts Options) {
	if !g.HasNode(hovered) {
		return
	}
	for _, n := range g.Neighbors(hovered) {
		if !g.HasNode(n) || nodeFlag(g, n, graph.AttrHidden) {
			continue
		}

		connecting := append(g.EdgesBetween(hovered, n), g.EdgesBetween(n, hovered)...)
		visible := false
		for _, edge := range connecting {
			if opts.JustImportantEdges && !edgeFlag(g, edge, graph.AttrImportant) {
				continue
			}
			e.edges.add(edge)
			visible = true
		}
		if !opts.JustImportantEdges {
			visible = true
		}
		if !visible {
			continue
		}
		e.nodes.add(n)

		if !opts.IncludeImportantNeighbors {
			continue
		}
		for _, m := range importantNeighbors(g, n) {
			e.addSecondHop(g, n, m, opts)
		}
	}
}

func (e *Engine) addSecondHop(g *graph.Graph, n, m string, opts Options) {
	candidates := g.EdgesBetween(n, m)
	if opts.Bidirectional {
		candidates = append(candidates, g.EdgesBetween(m, n)...)
	}
	included := false
	for _, edge := range candidates {
		if opts.JustImportantEdges && !edgeFlag(g, edge, graph.AttrImportant) {
			continue
		}
		e.edges.add(edge)
		included = true
	}
	if included {
		e.nodes.add(m)
	}
}

func importantNeighbors(g *graph.Graph, n string) []string {
	var out []string
	for _, m := range g.Neighbors(n) {
		if nodeFlag(g, m, graph.AttrImportant) && !nodeFlag(g, m, graph.AttrHidden) {
			out = append(out, m)
		}
	}
	return out
}

// Forget removes dropped elements from the sets.
func (e *Engine) Forget(nodes, edges []string) {
	for _, k := range nodes {
		e.nodes.remove(k)
		if e.hovered == k {
			e.hovered = ""
		}
	}
	for _, k := range edges {
		e.edges.remove(k)
	}
}

// Clear empties both sets and forgets the hovered node.
func (e *Engine) Clear() {
	e.hovered = ""
	e.nodes = keySet{}
	e.edges = keySet{}
}

// Hovered returns the hovered node, or "" when nothing is hovered.
func (e *Engine) Hovered() string { return e.hovered }

// Nodes returns the highlighted node keys in insertion order.
func (e *Engine) Nodes() []string { return slices.Clone(e.nodes.keys) }

// Edges returns the highlighted edge keys in insertion order.
func (e *Engine) Edges() []string { return slices.Clone(e.edges.keys) }

// HasNode reports whether key is highlighted.
func (e *Engine) HasNode(key string) bool { return e.nodes.has(key) }

// HasEdge reports whether key is highlighted.
func (e *Engine) HasEdge(key string) bool { return e.edges.has(key) }

// ReduceNode returns the display attributes of a node. Highlighted nodes get
// the highlight color and z=1; a node that is not adjacent to the hovered node
// gets the important-neighbor color instead when one is configured.
// Other nodes are returned unchanged.
func (e *Engine) ReduceNode(g *graph.Graph, key string, attrs graph.Attributes, c Colors) graph.Attributes {
	if !e.nodes.has(key) {
		return attrs
	}
	out := attrs.Clone()
	out[graph.AttrZ] = 1
	if c.ImportantNeighbors != "" && e.hovered != "" && e.hovered != key &&
		g.HasNode(e.hovered) && g.HasNode(key) && !g.AreNeighbors(e.hovered, key) {
		out[graph.AttrColor] = c.ImportantNeighbors
		return out
	}
	out[graph.AttrColor] = c.Highlight
	return out
}

// ReduceEdge returns the display attributes of an edge. Highlighted edges
// that are not incident to the hovered node get the important-neighbor color
// when one is configured, every other highlighted edge the highlight color.
func (e *Engine) ReduceEdge(g *graph.Graph, key string, attrs graph.Attributes, c Colors) graph.Attributes {
	if !e.edges.has(key) {
		return attrs
	}
	out := attrs.Clone()
	out[graph.AttrZ] = 1
	if c.ImportantNeighbors != "" && e.hovered != "" {
		if src, tgt, ok := g.Extremities(key); ok && src != e.hovered && tgt != e.hovered {
			out[graph.AttrColor] = c.ImportantNeighbors
			return out
		}
	}
	out[graph.AttrColor] = c.Highlight
	return out
}

func nodeFlag(g *graph.Graph, key, name string) bool {
	v, ok := g.NodeAttribute(key, name)
	b, isBool := v.(bool)
	return ok && isBool && b
}

func edgeFlag(g *graph.Graph, key, name string) bool {
	v, ok := g.EdgeAttribute(key, name)
	b, isBool := v.(bool)
	return ok && isBool && b
}

func resetNodeZ(g *graph.Graph, key string) {
	if v, ok := g.NodeAttribute(key, graph.AttrZ); ok && !isZero(v) {
		_ = g.SetNodeAttribute(key, graph.AttrZ, 0)
	}
}

func isZero(v any) bool {
	f, ok := graph.ToFloat(v)
	return ok && f == 0
}

// keySet is an insertion-ordered set of keys.
type keySet struct {
	keys  []string
	index map[string]bool
}

func (s *keySet) add(k string) {
	if s.index == nil {
		s.index = make(map[string]bool)
	}
	if s.index[k] {
		return
	}
	s.index[k] = true
	s.keys = append(s.keys, k)
}

func (s *keySet) has(k string) bool { return s.index[k] }

func (s *keySet) remove(k string) {
	if !s.index[k] {
		return
	}
	delete(s.index, k)
	s.keys = slices.DeleteFunc(s.keys, func(x string) bool { return x == k })
}
