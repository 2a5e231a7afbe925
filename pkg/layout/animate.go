package layout

import (
	"context"
	"time"

	"github.com/matzehuels/webgraph/pkg/graph"
)

// Animation defaults.
const (
	DefaultAnimationDuration = 1000 * time.Millisecond
	DefaultFrameInterval     = 16 * time.Millisecond
)

// Easing maps linear progress in [0, 1] to eased progress.
type Easing func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// CubicInOut accelerates during the first half and decelerates during the
// second.
func CubicInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	t = 2*t - 2
	return 0.5*t*t*t + 1
}

// AnimationOptions configure [Animate].
type AnimationOptions struct {
	Duration      time.Duration
	FrameInterval time.Duration
	Easing        Easing
}

// DefaultAnimationOptions returns a one second cubic-in-out animation.
func DefaultAnimationOptions() AnimationOptions {
	return AnimationOptions{
		Duration:      DefaultAnimationDuration,
		FrameInterval: DefaultFrameInterval,
		Easing:        CubicInOut,
	}
}

// Animate interpolates from -> to and calls apply with every intermediate
// frame. Only keys present in to are animated; keys missing from from start
// at their target. The final frame is always exactly to.
//
// Animate blocks until the animation finishes or ctx is cancelled, and
// reports whether the final frame was applied. A non-positive duration
// applies to in a single frame.
func Animate(ctx context.Context, from, to graph.Positions, opts AnimationOptions, apply func(graph.Positions)) bool {
	if ctx.Err() != nil {
		return false
	}
	if opts.Duration <= 0 {
		apply(to.Clone())
		return true
	}
	if opts.Easing == nil {
		opts.Easing = CubicInOut
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}

	ticker := time.NewTicker(opts.FrameInterval)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return false
		case now := <-ticker.C:
			progress := float64(now.Sub(start)) / float64(opts.Duration)
			if progress >= 1 {
				if ctx.Err() != nil {
					return false
				}
				apply(to.Clone())
				return true
			}
			apply(Interpolate(from, to, opts.Easing(progress)))
		}
	}
}

// Interpolate returns the positions a fraction t of the way from -> to.
func Interpolate(from, to graph.Positions, t float64) graph.Positions {
	out := make(graph.Positions, len(to))
	for k, end := range to {
		begin, ok := from[k]
		if !ok {
			out[k] = end
			continue
		}
		out[k] = graph.Position{
			X: begin.X + (end.X-begin.X)*t,
			Y: begin.Y + (end.Y-begin.Y)*t,
		}
	}
	return out
}
