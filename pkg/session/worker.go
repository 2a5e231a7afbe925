package session

import (
	"time"

	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/events"
	"github.com/matzehuels/webgraph/pkg/history"
	"github.com/matzehuels/webgraph/pkg/layout"
)

// StartForceAtlas2Worker starts the background ForceAtlas2 worker. While it
// runs, the worker owns node positions and every mutation is rejected. It
// reports false when the worker already runs.
func (s *Session) StartForceAtlas2Worker(opts ...MutationOption) (bool, error) {
	s.lock()
	defer s.unlock()
	if err := s.workerReady(); err != nil {
		return false, err
	}
	return s.startWorker(record(opts)), nil
}

// StopForceAtlas2Worker stops the worker and records the run as one
// set-layout-via-worker action. It reports false when the worker is idle.
func (s *Session) StopForceAtlas2Worker(opts ...MutationOption) (bool, error) {
	s.lock()
	defer s.unlock()
	if err := s.workerReady(); err != nil {
		return false, err
	}
	return s.stopWorker(record(opts)), nil
}

// ToggleForceAtlas2Worker starts an idle worker or stops a running one.
func (s *Session) ToggleForceAtlas2Worker(opts ...MutationOption) (bool, error) {
	s.lock()
	defer s.unlock()
	if err := s.workerReady(); err != nil {
		return false, err
	}
	if s.state == StateWorkerActive {
		return s.stopWorker(record(opts)), nil
	}
	return s.startWorker(record(opts)), nil
}

func (s *Session) workerReady() error {
	if !s.rendering {
		return errors.New(errors.ErrCodeRenderingInactive, "rendering is not active")
	}
	if s.worker == nil {
		return errors.New(errors.ErrCodeWorkerNotEnabled, "forceatlas2 worker is not enabled")
	}
	return nil
}

func (s *Session) startWorker(rec bool) bool {
	if s.state == StateWorkerActive {
		return false
	}
	s.finishAnimation()

	opts := s.cfg.LayoutConfig.ForceAtlas2Options()
	old := history.LayoutState{Kind: s.cfg.Layout, Config: s.cfg.LayoutConfig.Clone(), Positions: s.g.Positions()}
	topo := layout.TopologyOf(s.g, old.Positions, opts.WeightAttribute)
	updates, err := s.worker.Start(topo)
	if err != nil {
		s.logger.Warn("start worker", "err", err)
		return false
	}
	s.workerRun++
	s.workerUpdates = updates
	s.workerStarted = time.Now()
	s.workerIters = 0
	go s.pump(s.workerRun, updates)

	if rec {
		s.workerAction = &history.SetLayoutViaWorkerChange{Old: old}
		s.addAction(s.workerAction)
	}
	s.cfg.Layout = layout.KindForceAtlas2
	s.state = StateWorkerActive
	s.logger.Debug("worker started", "nodes", len(topo.Nodes))
	s.hooks().OnWorkerStart(s.ctx, len(topo.Nodes))
	return true
}

// pump applies the updates of one run. Updates arriving after the run was
// stopped are discarded.
func (s *Session) pump(run uint64, updates <-chan layout.Update) {
	for u := range updates {
		s.lock()
		if s.workerRun == run && s.state == StateWorkerActive {
			s.applyUpdate(u)
		}
		s.unlock()
	}
}

func (s *Session) applyUpdate(u layout.Update) {
	for k, p := range u.Positions {
		if s.g.HasNode(k) {
			_ = s.g.SetPosition(k, p)
		}
	}
	s.workerIters = u.Iteration
	s.refresh()
}

func (s *Session) stopWorker(rec bool) bool {
	if s.state != StateWorkerActive {
		return false
	}
	s.worker.Stop()
	s.workerRun++
	// The run is over and its channel closed; the last update still counts.
	var last *layout.Update
	for u := range s.workerUpdates {
		last = &u
	}
	if last != nil {
		s.applyUpdate(*last)
	}
	s.workerUpdates = nil
	if s.initialTimer != nil {
		s.initialTimer.Stop()
		s.initialTimer = nil
	}
	s.state = StateIdle

	if rec && s.workerAction != nil {
		if a, ok := s.hist.Latest(); ok && a.Change == history.Change(s.workerAction) {
			s.workerAction.New = &history.LayoutState{
				Kind:      layout.KindForceAtlas2,
				Config:    s.cfg.LayoutConfig.Clone(),
				Positions: s.g.Positions(),
			}
		}
	}
	s.workerAction = nil

	runtime := time.Since(s.workerStarted)
	s.logger.Debug("worker stopped", "runtime", runtime, "iterations", s.workerIters)
	s.hooks().OnWorkerStop(s.ctx, runtime, s.workerIters)
	s.refresh()
	return true
}

// runInitialWorker seeds positions, runs the worker for d and stops it
// without recording history.
func (s *Session) runInitialWorker(d time.Duration) error {
	seed, ok, err := layout.PreApplied(s.g, s.cfg.LayoutConfig)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidLayout, err, "pre-applied layout")
	}
	if ok {
		s.g.Assign(seed)
	} else {
		random := layout.Random(s.g, s.cfg.LayoutConfig.RandomOptions())
		for k := range s.g.Positions() {
			delete(random, k)
		}
		s.g.Assign(random)
	}
	s.refresh()

	if !s.startWorker(false) {
		return errors.New(errors.ErrCodeInternal, "initial worker did not start")
	}
	s.emit(events.Event{Name: events.WorkerStarted})

	run := s.workerRun
	s.initialTimer = time.AfterFunc(d, func() {
		s.lock()
		defer s.unlock()
		if s.workerRun != run || s.state != StateWorkerActive {
			return
		}
		s.initialTimer = nil
		s.stopWorker(false)
		s.emit(events.Event{Name: events.WorkerCompleted})
	})
	return nil
}
