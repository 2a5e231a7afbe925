// Package render connects a graph session to whatever draws it.
//
// # Overview
//
// A session never rasterizes anything itself. It pushes notifications to a
// [Renderer] after structural or visual changes and lets the renderer pull a
// [Frame] (the reducer-applied draw list) when it is ready to draw:
//
//   - [Renderer.Process] after nodes or edges were added or removed
//   - [Renderer.Refresh] after attributes such as positions or colors changed
//   - [Renderer.ScheduleRender] when only a redraw is needed
//   - [Renderer.UpdateSettings] when a display flag changed
//
// Session calls into the renderer are made outside the session lock, so a
// renderer may call back into the session (for example to read a frame).
//
// # Frames
//
// [BuildFrame] turns a graph and the current [Settings] into plain
// (key, x, y, size, color) tuples. The session passes its highlight reducers
// so hovered subgraphs are recolored before anything is drawn.
//
// # Implementations
//
// [Nop] discards every call. [Recorder] counts calls and is used by tests.
// The [nodelink] subpackage exports frames as Graphviz DOT and SVG; the CLI
// provides a terminal renderer for interactive exploration.
//
// [nodelink]: github.com/matzehuels/webgraph/pkg/render/nodelink
package render
