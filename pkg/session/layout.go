package session

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/matzehuels/webgraph/pkg/cache"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/events"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/history"
	"github.com/matzehuels/webgraph/pkg/layout"
)

// SetAndApplyLayout makes kind the active layout and applies it with an
// animated transition. It reports false while the worker is active; an
// unknown kind or invalid configuration is an INVALID_LAYOUT error.
func (s *Session) SetAndApplyLayout(kind layout.Kind, cfg layout.Config, opts ...MutationOption) (bool, error) {
	s.lock()
	defer s.unlock()
	return s.setAndApplyLayout(kind, cfg, record(opts))
}

func (s *Session) setAndApplyLayout(kind layout.Kind, cfg layout.Config, rec bool) (bool, error) {
	if !layout.ValidKinds[kind] {
		return false, errors.New(errors.ErrCodeInvalidLayout, "invalid layout %q", kind)
	}
	if err := cfg.Validate(); err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidLayout, err, "invalid layout configuration")
	}
	if s.workerBusy("setAndApplyLayout") {
		return false, nil
	}
	s.finishAnimation()

	old := history.LayoutState{Kind: s.cfg.Layout, Config: s.cfg.LayoutConfig.Clone()}
	if rec {
		old.Positions = s.g.Positions()
	}

	s.cfg.Layout, s.cfg.LayoutConfig = kind, cfg.Clone()
	target, err := s.applyLayout(kind, cfg, false)
	if err != nil {
		s.cfg.Layout, s.cfg.LayoutConfig = old.Kind, old.Config
		return false, errors.Wrap(errors.ErrCodeInvalidLayout, err, "apply %s layout", kind)
	}

	if rec {
		next := history.LayoutState{Kind: kind, Config: cfg.Clone(), Positions: target.Clone()}
		s.addAction(&history.SetLayoutChange{Old: old, New: next})
	}
	return true, nil
}

// ReapplyLayout runs the active layout again. A ForceAtlas2 re-application
// refines the current positions instead of seeding from the pre-applied
// layout.
func (s *Session) ReapplyLayout(opts ...MutationOption) (bool, error) {
	s.lock()
	defer s.unlock()
	rec := record(opts)
	if s.workerBusy("reapplyLayout") {
		return false, nil
	}
	s.finishAnimation()

	kind, before := s.cfg.Layout, s.cfg.LayoutConfig.Clone()
	old := history.LayoutState{Kind: kind, Config: before}
	if rec {
		old.Positions = s.g.Positions()
	}

	cfg := before.Clone()
	if kind == layout.KindForceAtlas2 && cfg.ForceAtlas2 != nil {
		cfg.ForceAtlas2.PreAppliedLayout = ""
	}
	s.cfg.LayoutConfig = cfg
	target, err := s.applyLayout(kind, cfg, false)
	if err != nil {
		s.cfg.LayoutConfig = before
		return false, errors.Wrap(errors.ErrCodeInvalidLayout, err, "reapply %s layout", kind)
	}

	if rec {
		next := history.LayoutState{Kind: kind, Config: cfg.Clone(), Positions: target.Clone()}
		s.addAction(&history.SetLayoutChange{Old: old, New: next})
	}
	return true, nil
}

// restoreLayout brings back a recorded layout state. Recorded positions are
// animated to; states without positions are re-run.
func (s *Session) restoreLayout(st history.LayoutState) bool {
	s.cfg.Layout, s.cfg.LayoutConfig = st.Kind, st.Config.Clone()
	if st.Positions != nil {
		s.animateTo(st.Positions.Clone())
		return true
	}
	if _, err := s.applyLayout(st.Kind, st.Config, false); err != nil {
		s.logger.Warn("replay layout failed", "layout", st.Kind, "err", err)
		return false
	}
	return true
}

// applyLayout computes kind and animates the graph to the result, which it
// returns. With randomizeFirst every node is first placed randomly.
func (s *Session) applyLayout(kind layout.Kind, cfg layout.Config, randomizeFirst bool) (graph.Positions, error) {
	s.finishAnimation()
	if randomizeFirst && kind != layout.KindPredefined {
		s.g.Assign(layout.Random(s.g, layout.Config{}.RandomOptions()))
	}
	if kind == layout.KindPredefined {
		return s.g.Positions(), nil
	}

	start := time.Now()
	s.hooks().OnLayoutStart(s.ctx, string(kind), s.g.Order())
	var (
		target graph.Positions
		err    error
	)
	if kind == layout.KindForceAtlas2 {
		target, err = s.forceAtlas2(cfg)
	} else {
		target, err = layout.Compute(s.g, kind, cfg)
	}
	s.hooks().OnLayoutComplete(s.ctx, string(kind), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("layout computed", "layout", kind, "nodes", len(target), "took", time.Since(start))
	s.animateTo(target)
	return target, nil
}

// forceAtlas2 seeds from the pre-applied layout, if any, and refines. Results
// are cached by topology when a layout cache is configured.
func (s *Session) forceAtlas2(cfg layout.Config) (graph.Positions, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed, ok, err := layout.PreApplied(s.g, cfg)
	if err != nil {
		return nil, err
	}
	if ok {
		s.g.Assign(seed)
	}
	opts := cfg.ForceAtlas2Options()
	topo := layout.TopologyOf(s.g, s.g.Positions(), opts.WeightAttribute)
	if s.layoutCache == nil {
		return layout.ForceAtlas2(topo, opts), nil
	}

	hash, err := cache.TopologyHash(topo)
	if err != nil {
		s.logger.Warn("hash topology", "err", err)
		return layout.ForceAtlas2(topo, opts), nil
	}
	pos, err := s.layoutCache.Get(s.ctx, hash, opts)
	if err == nil {
		s.logger.Debug("layout cache hit", "hash", hash)
		return pos, nil
	}
	if !stderrors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("layout cache read", "err", err)
	}
	pos = layout.ForceAtlas2(topo, opts)
	if err := s.layoutCache.Put(s.ctx, hash, opts, pos); err != nil {
		s.logger.Warn("layout cache write", "err", err)
	}
	return pos, nil
}

// =============================================================================
// Animation
// =============================================================================

// animateTo moves the graph to target. With a positive duration the
// transition runs in the background and syncLayoutCompleted is emitted once
// the final frame is applied; a newer animation supersedes it silently.
func (s *Session) animateTo(target graph.Positions) {
	s.finishAnimation()
	if s.anim.Duration <= 0 {
		s.g.Assign(target)
		s.refresh()
		s.emit(events.Event{Name: events.SyncLayoutCompleted})
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.animSeq++
	seq := s.animSeq
	s.animCancel, s.animTarget = cancel, target
	s.state = StateSynchronousLayout

	from, opts := s.g.Positions(), s.anim
	go func() {
		defer cancel()
		layout.Animate(ctx, from, target, opts, func(frame graph.Positions) {
			s.lock()
			defer s.unlock()
			if s.animSeq != seq {
				return
			}
			s.g.Assign(frame)
			s.refresh()
		})

		s.lock()
		defer s.unlock()
		if s.animSeq != seq {
			return
		}
		s.animCancel, s.animTarget = nil, nil
		if s.state == StateSynchronousLayout {
			s.state = StateIdle
		}
		s.emit(events.Event{Name: events.SyncLayoutCompleted})
	}()
}

// finishAnimation jumps an in-flight animation to its final frame.
func (s *Session) finishAnimation() {
	if s.animCancel == nil {
		return
	}
	target := s.animTarget
	s.cancelAnimation()
	s.g.Assign(target)
	s.refresh()
}

// cancelAnimation abandons an in-flight animation where it is.
func (s *Session) cancelAnimation() {
	if s.animCancel == nil {
		return
	}
	s.animCancel()
	s.animSeq++
	s.animCancel, s.animTarget = nil, nil
	if s.state == StateSynchronousLayout {
		s.state = StateIdle
	}
}
