package graph

import (
	"errors"
	"slices"

	"github.com/google/uuid"
)

var (
	// ErrInvalidKey is returned when a node or edge key is empty.
	ErrInvalidKey = errors.New("key must not be empty")

	// ErrDuplicateNode is returned by [Graph.AddNode] when a node with the
	// same key already exists.
	ErrDuplicateNode = errors.New("duplicate node key")

	// ErrDuplicateEdge is returned by [Graph.AddEdge] when an edge with the
	// same key already exists.
	ErrDuplicateEdge = errors.New("duplicate edge key")

	// ErrUnknownNode is returned when an operation references a node that
	// does not exist.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownEdge is returned when an operation references an edge that
	// does not exist.
	ErrUnknownEdge = errors.New("unknown edge")

	// ErrUnknownSource is returned by [Graph.AddEdge] and [Graph.MergeEdge]
	// when the source node does not exist.
	ErrUnknownSource = errors.New("unknown source node")

	// ErrUnknownTarget is returned by [Graph.AddEdge] and [Graph.MergeEdge]
	// when the target node does not exist.
	ErrUnknownTarget = errors.New("unknown target node")

	// ErrEndpointMismatch is returned by [Graph.MergeEdge] when an edge key is
	// reused with different endpoints. Edges never change source or target
	// once created.
	ErrEndpointMismatch = errors.New("edge key already used with different endpoints")
)

type node struct {
	attrs Attributes
	out   []string // outgoing edge keys
	in    []string // incoming edge keys
}

type edge struct {
	source string
	target string
	attrs  Attributes
}

// Graph is a directed multigraph with attributed, keyed nodes and edges.
//
// The zero value is not usable - use New to create a Graph.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes     map[string]*node
	edges     map[string]*edge
	nodeOrder []string
	edgeOrder []string
	newKey    func() string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[string]*node),
		edges:  make(map[string]*edge),
		newKey: uuid.NewString,
	}
}

// Order returns the number of nodes.
func (g *Graph) Order() int { return len(g.nodes) }

// Size returns the number of edges.
func (g *Graph) Size() int { return len(g.edges) }

// =============================================================================
// Nodes
// =============================================================================

// HasNode reports whether a node with the given key exists.
func (g *Graph) HasNode(key string) bool {
	_, ok := g.nodes[key]
	return ok
}

// AddNode adds a node. The attributes are copied.
// Returns ErrInvalidKey for an empty key or ErrDuplicateNode if the key is
// already taken.
func (g *Graph) AddNode(key string, attrs Attributes) error {
	if key == "" {
		return ErrInvalidKey
	}
	if g.HasNode(key) {
		return ErrDuplicateNode
	}
	g.nodes[key] = &node{attrs: attrs.Clone()}
	g.nodeOrder = append(g.nodeOrder, key)
	return nil
}

// MergeNode creates the node if it does not exist, otherwise merges attrs into
// its attributes with the new values winning on conflict. It reports whether
// the node was created.
func (g *Graph) MergeNode(key string, attrs Attributes) (bool, error) {
	n, ok := g.nodes[key]
	if !ok {
		return true, g.AddNode(key, attrs)
	}
	n.attrs.Merge(attrs)
	return false, nil
}

// ReplaceNodeAttributes swaps the node's attributes for a copy of attrs.
func (g *Graph) ReplaceNodeAttributes(key string, attrs Attributes) error {
	n, ok := g.nodes[key]
	if !ok {
		return ErrUnknownNode
	}
	n.attrs = attrs.Clone()
	return nil
}

// DropNode removes the node and every edge incident to it.
func (g *Graph) DropNode(key string) error {
	if !g.HasNode(key) {
		return ErrUnknownNode
	}
	for _, e := range g.EdgesOf(key) {
		g.removeEdge(e)
	}
	delete(g.nodes, key)
	g.nodeOrder = removeKey(g.nodeOrder, key)
	return nil
}

// NodeAttributes returns a copy of the node's attributes.
func (g *Graph) NodeAttributes(key string) (Attributes, bool) {
	n, ok := g.nodes[key]
	if !ok {
		return nil, false
	}
	return n.attrs.Clone(), true
}

// NodeAttribute returns a single attribute of the node.
func (g *Graph) NodeAttribute(key, name string) (any, bool) {
	n, ok := g.nodes[key]
	if !ok {
		return nil, false
	}
	v, ok := n.attrs[name]
	return v, ok
}

// SetNodeAttribute sets a single attribute of the node.
func (g *Graph) SetNodeAttribute(key, name string, value any) error {
	n, ok := g.nodes[key]
	if !ok {
		return ErrUnknownNode
	}
	n.attrs[name] = value
	return nil
}

// Nodes returns all node keys in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodeOrder)
}

// =============================================================================
// Edges
// =============================================================================

// HasEdge reports whether an edge with the given key exists.
func (g *Graph) HasEdge(key string) bool {
	_, ok := g.edges[key]
	return ok
}

// HasEdgeBetween reports whether at least one edge goes from source to target.
func (g *Graph) HasEdgeBetween(source, target string) bool {
	return len(g.EdgesBetween(source, target)) > 0
}

// AddEdge adds a directed edge and returns its key. An empty key is replaced
// by a generated one.
func (g *Graph) AddEdge(key, source, target string, attrs Attributes) (string, error) {
	if _, ok := g.nodes[source]; !ok {
		return "", ErrUnknownSource
	}
	if _, ok := g.nodes[target]; !ok {
		return "", ErrUnknownTarget
	}
	if key == "" {
		key = g.newKey()
	}
	if g.HasEdge(key) {
		return "", ErrDuplicateEdge
	}
	g.edges[key] = &edge{source: source, target: target, attrs: attrs.Clone()}
	g.edgeOrder = append(g.edgeOrder, key)
	g.nodes[source].out = append(g.nodes[source].out, key)
	g.nodes[target].in = append(g.nodes[target].in, key)
	return key, nil
}

// MergeEdge merges attrs into an existing edge or creates a new one.
//
// With a non-empty key the edge is looked up by key; reusing a key with other
// endpoints returns ErrEndpointMismatch. With an empty key the first edge
// from source to target is merged into, if any. It returns the resolved key
// and whether the edge was created.
func (g *Graph) MergeEdge(key, source, target string, attrs Attributes) (string, bool, error) {
	if _, ok := g.nodes[source]; !ok {
		return "", false, ErrUnknownSource
	}
	if _, ok := g.nodes[target]; !ok {
		return "", false, ErrUnknownTarget
	}
	if key == "" {
		if existing := g.EdgesBetween(source, target); len(existing) > 0 {
			key = existing[0]
		}
	}
	if e, ok := g.edges[key]; ok {
		if e.source != source || e.target != target {
			return "", false, ErrEndpointMismatch
		}
		e.attrs.Merge(attrs)
		return key, false, nil
	}
	key, err := g.AddEdge(key, source, target, attrs)
	return key, err == nil, err
}

// ReplaceEdgeAttributes swaps the edge's attributes for a copy of attrs.
func (g *Graph) ReplaceEdgeAttributes(key string, attrs Attributes) error {
	e, ok := g.edges[key]
	if !ok {
		return ErrUnknownEdge
	}
	e.attrs = attrs.Clone()
	return nil
}

// DropEdge removes a single edge.
func (g *Graph) DropEdge(key string) error {
	if !g.HasEdge(key) {
		return ErrUnknownEdge
	}
	g.removeEdge(key)
	return nil
}

// ClearEdges removes every edge, keeping all nodes.
func (g *Graph) ClearEdges() {
	g.edges = make(map[string]*edge)
	g.edgeOrder = nil
	for _, n := range g.nodes {
		n.out, n.in = nil, nil
	}
}

// Extremities returns the source and target of an edge.
func (g *Graph) Extremities(key string) (source, target string, ok bool) {
	e, ok := g.edges[key]
	if !ok {
		return "", "", false
	}
	return e.source, e.target, true
}

// EdgeAttributes returns a copy of the edge's attributes.
func (g *Graph) EdgeAttributes(key string) (Attributes, bool) {
	e, ok := g.edges[key]
	if !ok {
		return nil, false
	}
	return e.attrs.Clone(), true
}

// EdgeAttribute returns a single attribute of the edge.
func (g *Graph) EdgeAttribute(key, name string) (any, bool) {
	e, ok := g.edges[key]
	if !ok {
		return nil, false
	}
	v, ok := e.attrs[name]
	return v, ok
}

// SetEdgeAttribute sets a single attribute of the edge.
func (g *Graph) SetEdgeAttribute(key, name string, value any) error {
	e, ok := g.edges[key]
	if !ok {
		return ErrUnknownEdge
	}
	e.attrs[name] = value
	return nil
}

// Edges returns all edge keys in insertion order.
func (g *Graph) Edges() []string {
	return slices.Clone(g.edgeOrder)
}

// EdgesOf returns the keys of every edge incident to the node, outgoing
// edges first. Self loops are listed once.
func (g *Graph) EdgesOf(key string) []string {
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}
	out := slices.Clone(n.out)
	for _, e := range n.in {
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// EdgesBetween returns the keys of the edges going from source to target.
func (g *Graph) EdgesBetween(source, target string) []string {
	n, ok := g.nodes[source]
	if !ok {
		return nil
	}
	var out []string
	for _, e := range n.out {
		if g.edges[e].target == target {
			out = append(out, e)
		}
	}
	return out
}

// Neighbors returns the keys of the nodes connected to key in either
// direction, excluding key itself.
func (g *Graph) Neighbors(key string) []string {
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(k string) {
		if k != key && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, e := range n.out {
		add(g.edges[e].target)
	}
	for _, e := range n.in {
		add(g.edges[e].source)
	}
	return out
}

// AreNeighbors reports whether an edge connects a and b in either direction.
func (g *Graph) AreNeighbors(a, b string) bool {
	return g.HasEdgeBetween(a, b) || g.HasEdgeBetween(b, a)
}

// Degree returns the number of edges incident to the node.
func (g *Graph) Degree(key string) int {
	return len(g.EdgesOf(key))
}

// =============================================================================
// Positions
// =============================================================================

// Position returns the node's coordinates if both x and y are numeric.
func (g *Graph) Position(key string) (Position, bool) {
	n, ok := g.nodes[key]
	if !ok {
		return Position{}, false
	}
	x, okX := n.attrs.Float(AttrX)
	y, okY := n.attrs.Float(AttrY)
	if !okX || !okY {
		return Position{}, false
	}
	return Position{X: x, Y: y}, true
}

// SetPosition writes the node's x and y attributes.
func (g *Graph) SetPosition(key string, p Position) error {
	n, ok := g.nodes[key]
	if !ok {
		return ErrUnknownNode
	}
	n.attrs[AttrX] = p.X
	n.attrs[AttrY] = p.Y
	return nil
}

// Positions returns the coordinates of every positioned node.
func (g *Graph) Positions() Positions {
	out := make(Positions, len(g.nodes))
	for _, k := range g.nodeOrder {
		if p, ok := g.Position(k); ok {
			out[k] = p
		}
	}
	return out
}

// Assign writes positions onto the graph, skipping keys that are not nodes.
func (g *Graph) Assign(p Positions) {
	for k, pos := range p {
		_ = g.SetPosition(k, pos)
	}
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	out := New()
	out.newKey = g.newKey
	for _, k := range g.nodeOrder {
		_ = out.AddNode(k, g.nodes[k].attrs)
	}
	for _, k := range g.edgeOrder {
		e := g.edges[k]
		_, _ = out.AddEdge(k, e.source, e.target, e.attrs)
	}
	return out
}

func (g *Graph) removeEdge(key string) {
	e := g.edges[key]
	if src, ok := g.nodes[e.source]; ok {
		src.out = removeKey(src.out, key)
	}
	if tgt, ok := g.nodes[e.target]; ok {
		tgt.in = removeKey(tgt.in, key)
	}
	delete(g.edges, key)
	g.edgeOrder = removeKey(g.edgeOrder, key)
}

func removeKey(keys []string, key string) []string {
	if i := slices.Index(keys, key); i >= 0 {
		return slices.Delete(keys, i, i+1)
	}
	return keys
}
