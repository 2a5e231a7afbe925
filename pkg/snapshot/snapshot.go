// Package snapshot captures and restores the pre-mutation state of graph
// elements.
//
// A snapshot is a deep copy of an element's attributes (and, for edges, its
// key and endpoints) taken immediately before a mutation. Restoring a
// snapshot reproduces the captured state exactly, including attributes the
// mutation never touched. Keys that do not exist at capture time have no
// snapshot and are omitted from the result.
package snapshot

import (
	"fmt"

	"github.com/matzehuels/webgraph/pkg/graph"
)

// Node captures a single node.
func Node(g *graph.Graph, key string) (graph.SerializedNode, bool) {
	attrs, ok := g.NodeAttributes(key)
	if !ok {
		return graph.SerializedNode{}, false
	}
	return graph.SerializedNode{Key: key, Attributes: attrs}, true
}

// Nodes captures every existing node among keys, in the order given.
func Nodes(g *graph.Graph, keys []string) []graph.SerializedNode {
	out := make([]graph.SerializedNode, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if n, ok := Node(g, k); ok {
			out = append(out, n)
		}
	}
	return out
}

// Edge captures a single edge.
func Edge(g *graph.Graph, key string) (graph.SerializedEdge, bool) {
	source, target, ok := g.Extremities(key)
	if !ok {
		return graph.SerializedEdge{}, false
	}
	attrs, _ := g.EdgeAttributes(key)
	return graph.SerializedEdge{Key: key, Source: source, Target: target, Attributes: attrs}, true
}

// Edges captures every existing edge among keys, in the order given.
func Edges(g *graph.Graph, keys []string) []graph.SerializedEdge {
	out := make([]graph.SerializedEdge, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if e, ok := Edge(g, k); ok {
			out = append(out, e)
		}
	}
	return out
}

// IncidentEdges captures every edge touching any of the given nodes. Edges
// shared by two of the nodes are captured once.
func IncidentEdges(g *graph.Graph, nodes []string) []graph.SerializedEdge {
	var keys []string
	for _, n := range nodes {
		keys = append(keys, g.EdgesOf(n)...)
	}
	return Edges(g, keys)
}

// AllEdges captures the entire edge set.
func AllEdges(g *graph.Graph) []graph.SerializedEdge {
	return Edges(g, g.Edges())
}

// Positions captures the full coordinate mapping.
func Positions(g *graph.Graph) graph.Positions {
	return g.Positions()
}

// RestoreNodes puts each node back into its captured state. Existing nodes
// get their attributes replaced wholesale; missing nodes are recreated.
func RestoreNodes(g *graph.Graph, nodes []graph.SerializedNode) error {
	for _, n := range nodes {
		var err error
		if g.HasNode(n.Key) {
			err = g.ReplaceNodeAttributes(n.Key, n.Attributes)
		} else {
			err = g.AddNode(n.Key, n.Attributes)
		}
		if err != nil {
			return fmt.Errorf("restore node %q: %w", n.Key, err)
		}
	}
	return nil
}

// RestoreEdges puts each edge back into its captured state under its
// original key. Edges whose key is taken by different endpoints are dropped
// and recreated, since edges never move.
func RestoreEdges(g *graph.Graph, edges []graph.SerializedEdge) error {
	for _, e := range edges {
		if source, target, ok := g.Extremities(e.Key); ok {
			if source == e.Source && target == e.Target {
				if err := g.ReplaceEdgeAttributes(e.Key, e.Attributes); err != nil {
					return fmt.Errorf("restore edge %q: %w", e.Key, err)
				}
				continue
			}
			_ = g.DropEdge(e.Key)
		}
		if _, err := g.AddEdge(e.Key, e.Source, e.Target, e.Attributes); err != nil {
			return fmt.Errorf("restore edge %q: %w", e.Key, err)
		}
	}
	return nil
}
