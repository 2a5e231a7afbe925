package layout

import (
	"math"

	"github.com/matzehuels/webgraph/pkg/graph"
)

// Settings tune the ForceAtlas2 physics.
//
// BarnesHutOptimize and BarnesHutTheta are carried for configuration
// compatibility; repulsion is always computed exactly.
type Settings struct {
	AdjustSizes                    bool    `json:"adjustSizes,omitempty" toml:"adjust_sizes" yaml:"adjustSizes,omitempty"`
	BarnesHutOptimize              bool    `json:"barnesHutOptimize,omitempty" toml:"barnes_hut_optimize" yaml:"barnesHutOptimize,omitempty"`
	BarnesHutTheta                 float64 `json:"barnesHutTheta,omitempty" toml:"barnes_hut_theta" yaml:"barnesHutTheta,omitempty"`
	EdgeWeightInfluence            float64 `json:"edgeWeightInfluence,omitempty" toml:"edge_weight_influence" yaml:"edgeWeightInfluence,omitempty"`
	Gravity                        float64 `json:"gravity,omitempty" toml:"gravity" yaml:"gravity,omitempty"`
	LinLogMode                     bool    `json:"linLogMode,omitempty" toml:"lin_log_mode" yaml:"linLogMode,omitempty"`
	OutboundAttractionDistribution bool    `json:"outboundAttractionDistribution,omitempty" toml:"outbound_attraction_distribution" yaml:"outboundAttractionDistribution,omitempty"`
	ScalingRatio                   float64 `json:"scalingRatio,omitempty" toml:"scaling_ratio" yaml:"scalingRatio,omitempty"`
	SlowDown                       float64 `json:"slowDown,omitempty" toml:"slow_down" yaml:"slowDown,omitempty"`
	StrongGravityMode              bool    `json:"strongGravityMode,omitempty" toml:"strong_gravity_mode" yaml:"strongGravityMode,omitempty"`
}

// DefaultSettings returns the baseline ForceAtlas2 settings.
func DefaultSettings() Settings {
	return Settings{
		BarnesHutTheta:      0.5,
		EdgeWeightInfluence: 1,
		Gravity:             1,
		ScalingRatio:        1,
		SlowDown:            1,
	}
}

// InferSettings returns settings suited to a graph of the given order.
func InferSettings(order int) Settings {
	s := DefaultSettings()
	s.StrongGravityMode = true
	s.Gravity = 0.05
	s.ScalingRatio = 10
	s.SlowDown = 1 + math.Log(float64(max(order, 1)))
	s.BarnesHutOptimize = order > 2000
	return s
}

// normalize fills in zero values that would stall the simulation. Explicit
// zero edge weight influence is kept, it makes every edge weigh 1.
func (s Settings) normalize() Settings {
	if s.ScalingRatio == 0 {
		s.ScalingRatio = 1
	}
	if s.SlowDown == 0 {
		s.SlowDown = 1
	}
	return s
}

// =============================================================================
// Topology
// =============================================================================

// WeightedEdge is an edge as seen by ForceAtlas2.
type WeightedEdge struct {
	Source string
	Target string
	Weight float64
}

// Topology is a self-contained copy of the data ForceAtlas2 needs. It shares
// no memory with the graph it was taken from, so it can be handed to a
// background worker.
type Topology struct {
	Nodes     []string
	Positions graph.Positions
	Sizes     map[string]float64
	Edges     []WeightedEdge
}

// TopologyOf copies the graph's structure. Positions come from start; nodes
// missing from start fall back to their current coordinates, or the origin.
func TopologyOf(g *graph.Graph, start graph.Positions, weightAttr string) Topology {
	if weightAttr == "" {
		weightAttr = DefaultWeightAttribute
	}
	t := Topology{
		Nodes:     g.Nodes(),
		Positions: make(graph.Positions, g.Order()),
		Sizes:     make(map[string]float64, g.Order()),
	}
	for _, k := range t.Nodes {
		p, ok := start[k]
		if !ok {
			p, _ = g.Position(k)
		}
		t.Positions[k] = p
		if v, ok := g.NodeAttribute(k, graph.AttrSize); ok {
			if size, ok := graph.ToFloat(v); ok {
				t.Sizes[k] = size
			}
		}
	}
	for _, e := range g.Edges() {
		source, target, _ := g.Extremities(e)
		w := 1.0
		if v, ok := g.EdgeAttribute(e, weightAttr); ok {
			if f, ok := graph.ToFloat(v); ok {
				w = f
			}
		}
		t.Edges = append(t.Edges, WeightedEdge{Source: source, Target: target, Weight: w})
	}
	return t
}

// ForceAtlas2 runs opts.Iterations refinement steps on the topology and
// returns the final positions. Zero iterations returns the start positions.
func ForceAtlas2(t Topology, opts ForceAtlas2Options) graph.Positions {
	s := newSimulation(t, opts.Settings)
	for range opts.Iterations {
		s.step()
	}
	return s.positions()
}

// =============================================================================
// Simulation
// =============================================================================

type simEdge struct {
	source, target int
	weight         float64
}

// simulation holds the ForceAtlas2 state in flat slices indexed by node.
type simulation struct {
	settings    Settings
	keys        []string
	x, y        []float64
	dx, dy      []float64
	oldDx       []float64
	oldDy       []float64
	mass        []float64
	size        []float64
	convergence []float64
	edges       []simEdge
}

func newSimulation(t Topology, settings *Settings) *simulation {
	n := len(t.Nodes)
	var st Settings
	if settings != nil {
		st = *settings
	} else {
		st = InferSettings(n)
	}
	s := &simulation{
		settings:    st.normalize(),
		keys:        t.Nodes,
		x:           make([]float64, n),
		y:           make([]float64, n),
		dx:          make([]float64, n),
		dy:          make([]float64, n),
		oldDx:       make([]float64, n),
		oldDy:       make([]float64, n),
		mass:        make([]float64, n),
		size:        make([]float64, n),
		convergence: make([]float64, n),
	}
	index := make(map[string]int, n)
	for i, k := range t.Nodes {
		index[k] = i
		p := t.Positions[k]
		s.x[i], s.y[i] = p.X, p.Y
		s.mass[i] = 1
		s.size[i] = 1
		if v, ok := t.Sizes[k]; ok {
			s.size[i] = v
		}
		s.convergence[i] = 1
	}
	for _, e := range t.Edges {
		si, okS := index[e.Source]
		ti, okT := index[e.Target]
		if !okS || !okT {
			continue
		}
		s.edges = append(s.edges, simEdge{source: si, target: ti, weight: e.Weight})
		s.mass[si]++
		s.mass[ti]++
	}
	return s
}

func (s *simulation) positions() graph.Positions {
	out := make(graph.Positions, len(s.keys))
	for i, k := range s.keys {
		out[k] = graph.Position{X: s.x[i], Y: s.y[i]}
	}
	return out
}

// step runs one ForceAtlas2 iteration: repulsion, gravity, attraction, then
// adaptive displacement per node.
func (s *simulation) step() {
	n := len(s.keys)
	st := s.settings
	for i := range n {
		s.oldDx[i], s.oldDy[i] = s.dx[i], s.dy[i]
		s.dx[i], s.dy[i] = 0, 0
	}

	// Repulsion
	for i := range n {
		for j := i + 1; j < n; j++ {
			xd, yd := s.x[i]-s.x[j], s.y[i]-s.y[j]
			var factor float64
			if st.AdjustSizes {
				dist := math.Sqrt(xd*xd+yd*yd) - s.size[i] - s.size[j]
				switch {
				case dist > 0:
					factor = st.ScalingRatio * s.mass[i] * s.mass[j] / (dist * dist)
				case dist < 0:
					factor = 100 * st.ScalingRatio * s.mass[i] * s.mass[j]
				}
			} else if d2 := xd*xd + yd*yd; d2 > 0 {
				factor = st.ScalingRatio * s.mass[i] * s.mass[j] / d2
			}
			s.dx[i] += xd * factor
			s.dy[i] += yd * factor
			s.dx[j] -= xd * factor
			s.dy[j] -= yd * factor
		}
	}

	// Gravity
	for i := range n {
		dist := math.Sqrt(s.x[i]*s.x[i] + s.y[i]*s.y[i])
		var factor float64
		if st.StrongGravityMode {
			factor = st.ScalingRatio * s.mass[i] * st.Gravity
		} else if dist > 0 {
			factor = st.ScalingRatio * s.mass[i] * st.Gravity / dist
		}
		s.dx[i] -= s.x[i] * factor
		s.dy[i] -= s.y[i] * factor
	}

	// Attraction
	coef := 1.0
	if st.OutboundAttractionDistribution && n > 0 {
		total := 0.0
		for i := range n {
			total += s.mass[i]
		}
		coef = total / float64(n)
	}
	for _, e := range s.edges {
		w := edgeWeight(e.weight, st.EdgeWeightInfluence)
		xd, yd := s.x[e.source]-s.x[e.target], s.y[e.source]-s.y[e.target]
		var factor float64
		if st.LinLogMode {
			dist := math.Sqrt(xd*xd + yd*yd)
			if st.AdjustSizes {
				dist -= s.size[e.source] + s.size[e.target]
			}
			if dist > 0 {
				factor = -coef * w * math.Log(1+dist) / dist
			}
		} else {
			factor = -coef * w
			if st.AdjustSizes && math.Sqrt(xd*xd+yd*yd)-s.size[e.source]-s.size[e.target] <= 0 {
				factor = 0
			}
		}
		if st.OutboundAttractionDistribution {
			factor /= s.mass[e.source]
		}
		s.dx[e.source] += xd * factor
		s.dy[e.source] += yd * factor
		s.dx[e.target] -= xd * factor
		s.dy[e.target] -= yd * factor
	}

	// Displacement
	for i := range n {
		ddx, ddy := s.oldDx[i]-s.dx[i], s.oldDy[i]-s.dy[i]
		swinging := s.mass[i] * math.Sqrt(ddx*ddx+ddy*ddy)
		tdx, tdy := s.oldDx[i]+s.dx[i], s.oldDy[i]+s.dy[i]
		traction := math.Sqrt(tdx*tdx+tdy*tdy) / 2
		speed := s.convergence[i] * math.Log(1+traction) / (1 + math.Sqrt(swinging))
		if st.AdjustSizes {
			speed = min(speed, 10)
		}
		force := s.dx[i]*s.dx[i] + s.dy[i]*s.dy[i]
		s.convergence[i] = min(1, math.Sqrt(speed*force/(1+math.Sqrt(swinging))))
		s.x[i] += s.dx[i] * speed / st.SlowDown
		s.y[i] += s.dy[i] * speed / st.SlowDown
	}
}

func edgeWeight(w, influence float64) float64 {
	switch influence {
	case 0:
		return 1
	case 1:
		return w
	}
	return math.Pow(w, influence)
}
