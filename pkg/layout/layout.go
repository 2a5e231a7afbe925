// Package layout computes node coordinates for a graph.
//
// Every layout function is pure: it reads the graph and returns a
// [graph.Positions] mapping without writing to the graph. Callers assign or
// animate the result themselves (see [Animate]).
//
// # Kinds
//
//	random       uniform random positions
//	circular     nodes evenly spaced on a circle
//	circlepack   nodes packed into nested circles grouped by attributes
//	forceatlas2  iterative force-directed refinement
//	predefined   positions already present on the graph
//
// ForceAtlas2 is the only iterative kind. It can be seeded by a closed-form
// layout (the "pre-applied" layout) and can run continuously on a background
// [Worker].
package layout

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/matzehuels/webgraph/pkg/graph"
)

// Kind names a layout algorithm.
type Kind string

// Layout kinds.
const (
	KindRandom      Kind = "random"
	KindCircular    Kind = "circular"
	KindCirclePack  Kind = "circlepack"
	KindForceAtlas2 Kind = "forceatlas2"
	KindPredefined  Kind = "predefined"
)

// ValidKinds lists every supported layout kind.
var ValidKinds = map[Kind]bool{
	KindRandom:      true,
	KindCircular:    true,
	KindCirclePack:  true,
	KindForceAtlas2: true,
	KindPredefined:  true,
}

// Iterative reports whether the layout refines positions over many steps and
// therefore cannot be replayed deterministically.
func (k Kind) Iterative() bool { return k == KindForceAtlas2 }

var (
	// ErrUnknownKind is returned for a layout kind not in ValidKinds.
	ErrUnknownKind = errors.New("unknown layout kind")

	// ErrSelfPreApplied is returned when ForceAtlas2 is configured as its own
	// pre-applied layout.
	ErrSelfPreApplied = errors.New("forceatlas2 cannot be pre-applied to itself")

	// ErrInvalidPreApplied is returned when the pre-applied layout is not a
	// closed-form kind (random, circular or circlepack).
	ErrInvalidPreApplied = errors.New("pre-applied layout must be random, circular or circlepack")
)

// ParseKind validates a layout name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !ValidKinds[k] {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// =============================================================================
// Configuration
// =============================================================================

// Default values shared by the CLI, server and session.
const (
	DefaultScale                = 1.0
	DefaultCenter               = 0.5
	DefaultIterations           = 100
	DefaultWeightAttribute      = graph.AttrWeight
	DefaultInitialWorkerRuntime = 0
)

// RandomOptions configures the random layout.
type RandomOptions struct {
	Scale  float64 `json:"scale,omitempty" toml:"scale" yaml:"scale,omitempty"`
	Center float64 `json:"center,omitempty" toml:"center" yaml:"center,omitempty"`
	// Seed makes the layout reproducible. Zero picks a fresh seed.
	Seed uint64 `json:"seed,omitempty" toml:"seed" yaml:"seed,omitempty"`
}

// CircularOptions configures the circular layout.
type CircularOptions struct {
	Scale  float64 `json:"scale,omitempty" toml:"scale" yaml:"scale,omitempty"`
	Center float64 `json:"center,omitempty" toml:"center" yaml:"center,omitempty"`
}

// CirclePackOptions configures the circle-pack layout.
type CirclePackOptions struct {
	Scale  float64 `json:"scale,omitempty" toml:"scale" yaml:"scale,omitempty"`
	Center float64 `json:"center,omitempty" toml:"center" yaml:"center,omitempty"`
	// Hierarchy lists node attributes used to nest groups, outermost first.
	Hierarchy []string `json:"hierarchy,omitempty" toml:"hierarchy" yaml:"hierarchy,omitempty"`
	Seed      uint64   `json:"seed,omitempty" toml:"seed" yaml:"seed,omitempty"`
}

// ForceAtlas2Options configures the ForceAtlas2 layout and its worker.
type ForceAtlas2Options struct {
	// Iterations run by a synchronous application.
	Iterations int `json:"iterations,omitempty" toml:"iterations" yaml:"iterations,omitempty"`
	// Settings tune the physics. Nil settings are inferred from graph order.
	Settings *Settings `json:"settings,omitempty" toml:"settings" yaml:"settings,omitempty"`
	// PreAppliedLayout seeds positions before refinement.
	PreAppliedLayout Kind `json:"preAppliedLayout,omitempty" toml:"pre_applied_layout" yaml:"preAppliedLayout,omitempty"`
	// InitialWorkerRuntime in milliseconds. When positive and the worker is
	// enabled, rendering starts the worker and stops it after this long.
	InitialWorkerRuntime int `json:"initialWorkerRuntime,omitempty" toml:"initial_worker_runtime" yaml:"initialWorkerRuntime,omitempty"`
	// WeightAttribute names the edge attribute read as weight.
	WeightAttribute string `json:"weightAttribute,omitempty" toml:"weight_attribute" yaml:"weightAttribute,omitempty"`
}

// WorkerRuntime returns InitialWorkerRuntime as a duration.
func (o ForceAtlas2Options) WorkerRuntime() time.Duration {
	return time.Duration(o.InitialWorkerRuntime) * time.Millisecond
}

// Config bundles the options of every layout kind. Only the section matching
// the applied kind (and the pre-applied kind, for ForceAtlas2) is read.
type Config struct {
	Random      *RandomOptions      `json:"random,omitempty" toml:"random" yaml:"random,omitempty"`
	Circular    *CircularOptions    `json:"circular,omitempty" toml:"circular" yaml:"circular,omitempty"`
	CirclePack  *CirclePackOptions  `json:"circlePack,omitempty" toml:"circlepack" yaml:"circlePack,omitempty"`
	ForceAtlas2 *ForceAtlas2Options `json:"forceAtlas2,omitempty" toml:"forceatlas2" yaml:"forceAtlas2,omitempty"`
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	var out Config
	if c.Random != nil {
		r := *c.Random
		out.Random = &r
	}
	if c.Circular != nil {
		ci := *c.Circular
		out.Circular = &ci
	}
	if c.CirclePack != nil {
		cp := *c.CirclePack
		cp.Hierarchy = slices.Clone(cp.Hierarchy)
		out.CirclePack = &cp
	}
	if c.ForceAtlas2 != nil {
		fa := *c.ForceAtlas2
		if fa.Settings != nil {
			s := *fa.Settings
			fa.Settings = &s
		}
		out.ForceAtlas2 = &fa
	}
	return out
}

// Validate checks the ForceAtlas2 pre-applied layout.
func (c Config) Validate() error {
	if c.ForceAtlas2 == nil || c.ForceAtlas2.PreAppliedLayout == "" {
		return nil
	}
	switch c.ForceAtlas2.PreAppliedLayout {
	case KindForceAtlas2:
		return ErrSelfPreApplied
	case KindRandom, KindCircular, KindCirclePack:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPreApplied, c.ForceAtlas2.PreAppliedLayout)
}

// RandomOptions returns the random options with defaults filled in.
func (c Config) RandomOptions() RandomOptions {
	o := RandomOptions{Scale: DefaultScale, Center: DefaultCenter}
	if c.Random != nil {
		o = *c.Random
		if o.Scale == 0 {
			o.Scale = DefaultScale
		}
	}
	return o
}

// CircularOptions returns the circular options with defaults filled in.
func (c Config) CircularOptions() CircularOptions {
	o := CircularOptions{Scale: DefaultScale, Center: DefaultCenter}
	if c.Circular != nil {
		o = *c.Circular
		if o.Scale == 0 {
			o.Scale = DefaultScale
		}
	}
	return o
}

// CirclePackOptions returns the circle-pack options with defaults filled in.
func (c Config) CirclePackOptions() CirclePackOptions {
	o := CirclePackOptions{Scale: DefaultScale}
	if c.CirclePack != nil {
		o = *c.CirclePack
		if o.Scale == 0 {
			o.Scale = DefaultScale
		}
	}
	return o
}

// ForceAtlas2Options returns the ForceAtlas2 options with defaults filled in.
func (c Config) ForceAtlas2Options() ForceAtlas2Options {
	o := ForceAtlas2Options{Iterations: DefaultIterations}
	if c.ForceAtlas2 != nil {
		o = *c.ForceAtlas2
	}
	if o.WeightAttribute == "" {
		o.WeightAttribute = DefaultWeightAttribute
	}
	return o
}

// =============================================================================
// Dispatch
// =============================================================================

// Compute runs the layout of the given kind and returns the new positions.
//
// For ForceAtlas2 the refinement starts from the pre-applied layout when one
// is configured, otherwise from the graph's current positions. Predefined
// returns the current positions unchanged.
func Compute(g *graph.Graph, kind Kind, cfg Config) (graph.Positions, error) {
	switch kind {
	case KindRandom:
		return Random(g, cfg.RandomOptions()), nil
	case KindCircular:
		return Circular(g, cfg.CircularOptions()), nil
	case KindCirclePack:
		return CirclePack(g, cfg.CirclePackOptions()), nil
	case KindPredefined:
		return g.Positions(), nil
	case KindForceAtlas2:
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		seed, ok, err := PreApplied(g, cfg)
		if err != nil {
			return nil, err
		}
		if !ok {
			seed = g.Positions()
		}
		opts := cfg.ForceAtlas2Options()
		return ForceAtlas2(TopologyOf(g, seed, opts.WeightAttribute), opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// PreApplied computes the seed positions configured for ForceAtlas2. It
// reports false when no pre-applied layout is configured.
func PreApplied(g *graph.Graph, cfg Config) (graph.Positions, bool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	if cfg.ForceAtlas2 == nil || cfg.ForceAtlas2.PreAppliedLayout == "" {
		return nil, false, nil
	}
	pos, err := Compute(g, cfg.ForceAtlas2.PreAppliedLayout, cfg)
	return pos, err == nil, err
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}
