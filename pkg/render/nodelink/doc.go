// Package nodelink exports session frames as node-link diagrams.
//
// # Usage
//
// Build a frame from a session, convert it to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(sess.Frame(), nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # DOT Format
//
// The generated DOT uses the neato engine with every node pinned to its
// frame position, so the picture matches what the session laid out. Node
// types map to Graphviz shapes (circle, doublecircle for rings, box,
// triangle). Cluster backdrops become a thick colored outline.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
