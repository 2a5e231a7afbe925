// Package graph provides the mutable attributed multigraph a session works on,
// together with its serialization format.
//
// # Model
//
// A [Graph] holds keyed nodes and keyed edges. Any number of edges may connect
// the same ordered pair of nodes; each one carries its own key and
// [Attributes]. Every edge's source and target must exist: [Graph.AddEdge]
// rejects unknown endpoints and [Graph.DropNode] cascade-drops incident edges.
//
// Iteration ([Graph.Nodes], [Graph.Edges], [Graph.Neighbors], ...) follows
// insertion order so that layouts, exports and tests are deterministic.
//
// # Attributes
//
// Attributes are free-form maps. The keys below have a meaning for the
// session engine and the renderers:
//
//	x, y        position
//	size        node radius
//	color       fill color
//	label       display label
//	category    info box / context menu / backdrop cluster selector
//	type        node shape (circle, ring, rectangle, triangle)
//	hidden      excluded from rendering and highlighting
//	important   important node or edge (two-hop highlighting)
//	score       passed to info box providers
//	weight      edge weight used by ForceAtlas2
//	z           transient z-ordering flag
//
// # Serialization
//
// [Serialized] is the node-link wire format used for files, stores and the
// HTTP API:
//
//	{
//	  "nodes": [{"key": "1", "attributes": {"x": 0, "y": 0}}],
//	  "edges": [{"key": "e1", "source": "1", "target": "2", "attributes": {"weight": 0.5}}]
//	}
//
// Common operations:
//
//	g, _ := graph.ReadFile("graph.json")   // File → Graph
//	graph.WriteFile(g, "output.json")      // Graph → File
//	data, _ := graph.Marshal(g)            // Graph → []byte
//
// # Concurrency
//
// Graph is not safe for concurrent use. The session serializes all access.
package graph
