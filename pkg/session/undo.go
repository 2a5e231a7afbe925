package session

import (
	"fmt"

	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/history"
	"github.com/matzehuels/webgraph/pkg/snapshot"
)

// Undo reverts the most recent active action. It reports false when there
// is nothing to undo, while the worker is active, or when the action could
// not be replayed; the log is only moved on success.
func (s *Session) Undo() (bool, error) {
	s.lock()
	defer s.unlock()
	if err := s.historyReady(); err != nil {
		return false, err
	}
	if s.workerBusy("undo") {
		return false, nil
	}
	a, ok := s.hist.Latest()
	if !ok {
		return false, nil
	}
	ok = s.revert(a.Change)
	if ok {
		s.hist.MarkLatestReverted()
	}
	s.logger.Debug("undo", "type", a.Type(), "ok", ok)
	s.hooks().OnUndo(s.ctx, string(a.Type()), ok)
	return ok, nil
}

// Redo re-applies the most recently reverted action.
func (s *Session) Redo() (bool, error) {
	s.lock()
	defer s.unlock()
	if err := s.historyReady(); err != nil {
		return false, err
	}
	if s.workerBusy("redo") {
		return false, nil
	}
	a, ok := s.hist.LatestReverted()
	if !ok {
		return false, nil
	}
	ok = s.reapply(a.Change)
	if ok {
		s.hist.MarkLatestRevertedNotReverted()
	}
	s.logger.Debug("redo", "type", a.Type(), "ok", ok)
	s.hooks().OnRedo(s.ctx, string(a.Type()), ok)
	return ok, nil
}

// ClearHistory discards every action. It reports false while the worker is
// active.
func (s *Session) ClearHistory() (bool, error) {
	s.lock()
	defer s.unlock()
	if s.workerBusy("clearHistory") {
		return false, nil
	}
	if !s.cfg.EnableHistory {
		return false, errors.New(errors.ErrCodeHistoryDisabled, "history is not enabled")
	}
	s.hist = history.NewManager()
	s.workerAction = nil
	return true, nil
}

func (s *Session) historyReady() error {
	if !s.rendering {
		return errors.New(errors.ErrCodeRenderingInactive, "rendering is not active")
	}
	if s.hist == nil {
		return errors.New(errors.ErrCodeHistoryDisabled, "history is not enabled")
	}
	return nil
}

// revert restores the pre-state of c.
func (s *Session) revert(c history.Change) bool {
	switch c := c.(type) {
	case *history.AppModeChange:
		return s.setAppMode(c.Old, false)

	case *history.UpsertNodesChange:
		s.dropCreatedNodes(c.Created)
		if err := snapshot.RestoreNodes(s.g, c.Old); err != nil {
			s.logger.Warn("undo: restore nodes", "err", err)
			return false
		}
		s.process()
		s.refresh()
		return true

	case *history.DropNodesChange:
		if err := s.restorable(c.Edges, c.Nodes); err != nil {
			s.logger.Warn("undo: restore edges", "err", err)
			return false
		}
		if err := snapshot.RestoreNodes(s.g, c.Nodes); err != nil {
			s.logger.Warn("undo: restore nodes", "err", err)
			return false
		}
		if err := snapshot.RestoreEdges(s.g, c.Edges); err != nil {
			s.logger.Warn("undo: restore edges", "err", err)
			return false
		}
		s.process()
		s.refresh()
		return true

	case *history.ReplaceEdgesChange:
		if err := s.setEdges(c.Old); err != nil {
			s.logger.Warn("undo: restore edges", "err", err)
			return false
		}
		return true

	case *history.UpsertEdgesChange:
		if err := s.restorable(c.Old, nil); err != nil {
			s.logger.Warn("undo: restore edges", "err", err)
			return false
		}
		s.hl.Forget(nil, c.Created)
		for _, k := range c.Created {
			_ = s.g.DropEdge(k)
		}
		if err := snapshot.RestoreEdges(s.g, c.Old); err != nil {
			s.logger.Warn("undo: restore edges", "err", err)
			return false
		}
		s.process()
		s.refresh()
		return true

	case *history.ToggleEdgeRenderingChange:
		return s.toggleEdgeRendering(&c.Old, false)

	case *history.ToggleImportantEdgesChange:
		if !s.toggleJustImportant(&c.Old, false) {
			return false
		}
		s.cfg.HideEdges = c.OldHideEdges
		s.pushSettings()
		return true

	case *history.SetDefaultNodeTypeChange:
		return s.setDefaultNodeType(c.Old, false)

	case *history.SetLayoutChange:
		return s.restoreLayout(c.Old)

	case *history.SetLayoutViaWorkerChange:
		return s.restoreLayout(c.Old)
	}
	return false
}

// reapply restores the post-state of c.
func (s *Session) reapply(c history.Change) bool {
	switch c := c.(type) {
	case *history.AppModeChange:
		return s.setAppMode(c.New, false)

	case *history.UpsertNodesChange:
		return s.mergeNodes(c.New, false)

	case *history.DropNodesChange:
		keys := make([]string, len(c.Nodes))
		for i, n := range c.Nodes {
			keys[i] = n.Key
		}
		return s.dropNodes(keys, false)

	case *history.ReplaceEdgesChange:
		if err := s.setEdges(c.New); err != nil {
			s.logger.Warn("redo: replace edges", "err", err)
			return false
		}
		return true

	case *history.UpsertEdgesChange:
		return s.mergeEdges(c.New, false)

	case *history.ToggleEdgeRenderingChange:
		return s.toggleEdgeRendering(&c.New, false)

	case *history.ToggleImportantEdgesChange:
		return s.toggleJustImportant(&c.New, false)

	case *history.SetDefaultNodeTypeChange:
		return s.setDefaultNodeType(c.New, false)

	case *history.SetLayoutChange:
		return s.restoreLayout(c.New)

	case *history.SetLayoutViaWorkerChange:
		if c.New == nil {
			return false
		}
		return s.restoreLayout(*c.New)
	}
	return false
}

func (s *Session) dropCreatedNodes(keys []string) {
	if len(keys) == 0 {
		return
	}
	var edges []string
	for _, k := range keys {
		edges = append(edges, s.g.EdgesOf(k)...)
	}
	s.forget(keys, edges)
	for _, k := range keys {
		_ = s.g.DropNode(k)
	}
}

// restorable checks that every edge endpoint is a node of the graph or one
// of nodes, so a restore fails before it mutates anything.
func (s *Session) restorable(edges []graph.SerializedEdge, nodes []graph.SerializedNode) error {
	pending := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		pending[n.Key] = true
	}
	for _, e := range edges {
		for _, k := range [2]string{e.Source, e.Target} {
			if !pending[k] && !s.g.HasNode(k) {
				return fmt.Errorf("edge %q: %w: %q", e.Key, graph.ErrUnknownNode, k)
			}
		}
	}
	return nil
}
