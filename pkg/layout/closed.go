package layout

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/webgraph/pkg/graph"
)

// Random places every node uniformly inside a square of side Scale centered
// on (Center, Center).
func Random(g *graph.Graph, opts RandomOptions) graph.Positions {
	rng := newRand(opts.Seed)
	offset := opts.Center - opts.Scale/2
	out := make(graph.Positions, g.Order())
	for _, k := range g.Nodes() {
		out[k] = graph.Position{
			X: rng.Float64()*opts.Scale + offset,
			Y: rng.Float64()*opts.Scale + offset,
		}
	}
	return out
}

// Circular places nodes evenly on a circle of radius Scale, in insertion
// order.
func Circular(g *graph.Graph, opts CircularOptions) graph.Positions {
	nodes := g.Nodes()
	out := make(graph.Positions, len(nodes))
	if len(nodes) == 0 {
		return out
	}
	step := 2 * math.Pi / float64(len(nodes))
	for i, k := range nodes {
		angle := step * float64(i)
		out[k] = graph.Position{
			X: opts.Scale*math.Cos(angle) + opts.Center,
			Y: opts.Scale*math.Sin(angle) + opts.Center,
		}
	}
	return out
}

// goldenAngle spreads packed circles along a Vogel spiral.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

type packItem struct {
	key      string
	radius   float64
	children []*packItem
	x, y     float64 // relative to the parent center
}

// CirclePack groups nodes by the Hierarchy attributes and packs each group
// into a circle, nesting groups inside their parent group. Node radii come
// from the size attribute (default 1). Sibling order is shuffled by Seed.
func CirclePack(g *graph.Graph, opts CirclePackOptions) graph.Positions {
	rng := newRand(opts.Seed)
	root := &packItem{}
	groups := map[string]*packItem{"": root}

	for _, k := range g.Nodes() {
		attrs, _ := g.NodeAttributes(k)
		parent := root
		path := ""
		for _, attr := range opts.Hierarchy {
			path += "\x00" + fmt.Sprint(attrs[attr])
			grp, ok := groups[path]
			if !ok {
				grp = &packItem{}
				groups[path] = grp
				parent.children = append(parent.children, grp)
			}
			parent = grp
		}
		r, ok := attrs.Float(graph.AttrSize)
		if !ok || r <= 0 {
			r = 1
		}
		parent.children = append(parent.children, &packItem{key: k, radius: r})
	}

	var pack func(p *packItem)
	pack = func(p *packItem) {
		for _, c := range p.children {
			if len(c.children) > 0 {
				pack(c)
			}
		}
		rng.Shuffle(len(p.children), func(i, j int) {
			p.children[i], p.children[j] = p.children[j], p.children[i]
		})
		slices.SortStableFunc(p.children, func(a, b *packItem) int { return cmp.Compare(b.radius, a.radius) })
		p.radius = spiral(p.children)
	}
	pack(root)

	out := make(graph.Positions, g.Order())
	scale := 1.0
	if root.radius > 0 {
		scale = opts.Scale / root.radius
	}
	var place func(p *packItem, cx, cy float64)
	place = func(p *packItem, cx, cy float64) {
		for _, c := range p.children {
			x, y := cx+c.x, cy+c.y
			if c.key != "" {
				out[c.key] = graph.Position{X: x*scale + opts.Center, Y: y*scale + opts.Center}
				continue
			}
			place(c, x, y)
		}
	}
	place(root, 0, 0)
	return out
}

// spiral lays items out on a Vogel spiral with spacing derived from the
// largest radius and returns the enclosing radius.
func spiral(items []*packItem) float64 {
	if len(items) == 0 {
		return 0
	}
	if len(items) == 1 {
		items[0].x, items[0].y = 0, 0
		return items[0].radius
	}
	spacing := 0.0
	for _, it := range items {
		spacing = max(spacing, it.radius)
	}
	spacing *= 2
	enclosing := 0.0
	for i, it := range items {
		dist := spacing * math.Sqrt(float64(i))
		angle := goldenAngle * float64(i)
		it.x, it.y = dist*math.Cos(angle), dist*math.Sin(angle)
		enclosing = max(enclosing, dist+it.radius)
	}
	return enclosing
}
