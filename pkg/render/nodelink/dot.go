package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/render"
)

// Options configures DOT generation.
type Options struct {
	// Scale multiplies layout coordinates into Graphviz points.
	// Zero means DefaultScale.
	Scale float64
	// Labels prints every node label, ignoring the frame's label selection.
	Labels bool
}

// DefaultScale maps the unit square of the closed-form layouts to a drawing
// a few inches wide.
const DefaultScale = 400.0

var shapes = map[config.NodeType]string{
	config.NodeTypeCircle:    "circle",
	config.NodeTypeRing:      "doublecircle",
	config.NodeTypeRectangle: "box",
	config.NodeTypeTriangle:  "triangle",
}

// ToDOT converts a frame to Graphviz DOT. Nodes are pinned to their frame
// coordinates (neato with pos="x,y!"), so Graphviz draws the session layout
// instead of computing its own.
func ToDOT(f render.Frame, opts Options) string {
	scale := opts.Scale
	if scale == 0 {
		scale = DefaultScale
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fixedsize=true, fontsize=10];\n")
	buf.WriteString("  edge [arrowsize=0.4];\n")
	buf.WriteString("\n")

	for _, n := range f.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Key, strings.Join(nodeAttrs(n, scale, opts.Labels), ", "))
	}

	buf.WriteString("\n")
	for _, e := range f.Edges {
		fmt.Fprintf(&buf, "  %q -> %q [color=%q, penwidth=%s];\n",
			e.Source, e.Target, e.Color, strconv.FormatFloat(max(e.Size, 0.1), 'f', 2, 64))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n render.FrameNode, scale float64, labels bool) []string {
	shape, ok := shapes[n.Type]
	if !ok {
		shape = "circle"
	}
	// Graphviz points are 1/72 inch; width is in inches.
	width := max(n.Size*scale/72/20, 0.1)
	attrs := []string{
		fmt.Sprintf("pos=\"%.2f,%.2f!\"", n.X*scale, n.Y*scale),
		"shape=" + shape,
		fmt.Sprintf("width=%.2f", width),
		fmt.Sprintf("fillcolor=%q", n.Color),
	}
	if labels || n.ShowLabel {
		attrs = append(attrs, fmt.Sprintf("xlabel=%q", n.Label))
	}
	attrs = append(attrs, "label=\"\"")
	if n.Backdrop != "" {
		attrs = append(attrs, fmt.Sprintf("color=%q", n.Backdrop), "penwidth=4")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
