package graph

import "fmt"

// =============================================================================
// Positions
// =============================================================================

// Position is a point in graph space.
type Position struct {
	X float64 `json:"x" bson:"x" yaml:"x"`
	Y float64 `json:"y" bson:"y" yaml:"y"`
}

// Positions maps node keys to coordinates. Layout functions return it and
// layout history entries store it.
type Positions map[string]Position

// Clone returns a copy of the mapping.
func (p Positions) Clone() Positions {
	if p == nil {
		return nil
	}
	out := make(Positions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// =============================================================================
// Serialized - Wire Format
// =============================================================================

// Serialized is the canonical node-link format of a graph.
// Used for files, API payloads, session stores and history snapshots.
type Serialized struct {
	Nodes []SerializedNode `json:"nodes" bson:"nodes"`
	Edges []SerializedEdge `json:"edges" bson:"edges"`
}

// SerializedNode is a node key with its attributes.
type SerializedNode struct {
	Key        string     `json:"key" bson:"key"`
	Attributes Attributes `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// SerializedEdge is an edge with its endpoints and attributes. Key may be
// empty in input payloads, in which case the edge is matched by endpoints.
type SerializedEdge struct {
	Key        string     `json:"key,omitempty" bson:"key,omitempty"`
	Source     string     `json:"source" bson:"source"`
	Target     string     `json:"target" bson:"target"`
	Attributes Attributes `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// Clone returns a deep copy of the node.
func (n SerializedNode) Clone() SerializedNode {
	return SerializedNode{Key: n.Key, Attributes: n.Attributes.Clone()}
}

// Clone returns a deep copy of the edge.
func (e SerializedEdge) Clone() SerializedEdge {
	return SerializedEdge{Key: e.Key, Source: e.Source, Target: e.Target, Attributes: e.Attributes.Clone()}
}

// Export returns the serialized form of the graph in insertion order.
func (g *Graph) Export() Serialized {
	out := Serialized{
		Nodes: make([]SerializedNode, 0, len(g.nodeOrder)),
		Edges: make([]SerializedEdge, 0, len(g.edgeOrder)),
	}
	for _, k := range g.nodeOrder {
		out.Nodes = append(out.Nodes, SerializedNode{Key: k, Attributes: g.nodes[k].attrs.Clone()})
	}
	for _, k := range g.edgeOrder {
		e := g.edges[k]
		out.Edges = append(out.Edges, SerializedEdge{
			Key:        k,
			Source:     e.source,
			Target:     e.target,
			Attributes: e.attrs.Clone(),
		})
	}
	return out
}

// Import builds a graph from its serialized form.
// Returns an error naming the offending element for duplicate keys or edges
// with unknown endpoints.
func Import(s Serialized) (*Graph, error) {
	g := New()
	for _, n := range s.Nodes {
		if err := g.AddNode(n.Key, n.Attributes); err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Key, err)
		}
	}
	for _, e := range s.Edges {
		if _, err := g.AddEdge(e.Key, e.Source, e.Target, e.Attributes); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return g, nil
}
