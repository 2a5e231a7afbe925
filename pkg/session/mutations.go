package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/history"
	"github.com/matzehuels/webgraph/pkg/snapshot"
)

// =============================================================================
// Nodes
// =============================================================================

// MergeNodes creates missing nodes and merges attributes into existing ones,
// new values winning. It reports false for empty input, an empty key, or
// while the worker is active.
func (s *Session) MergeNodes(nodes []graph.SerializedNode, opts ...MutationOption) bool {
	s.lock()
	defer s.unlock()
	return s.mergeNodes(nodes, record(opts))
}

func (s *Session) mergeNodes(nodes []graph.SerializedNode, rec bool) bool {
	if len(nodes) == 0 {
		s.reject("mergeNodes", "empty input")
		return false
	}
	if s.workerBusy("mergeNodes") {
		return false
	}
	keys := make([]string, len(nodes))
	for i, n := range nodes {
		if n.Key == "" {
			s.reject("mergeNodes", "empty key")
			return false
		}
		keys[i] = n.Key
	}

	old := snapshot.Nodes(s.g, keys)
	var created []string
	for _, n := range nodes {
		isNew, err := s.g.MergeNode(n.Key, n.Attributes)
		if err != nil {
			s.logger.Warn("merge node failed", "node", n.Key, "err", err)
			continue
		}
		if isNew {
			created = append(created, n.Key)
		}
	}

	// Replays reveal the edges a hidden merge target had hidden.
	if !rec {
		for _, k := range keys {
			for _, e := range s.g.EdgesOf(k) {
				if v, ok := s.g.EdgeAttribute(e, graph.AttrHidden); ok && v == true {
					_ = s.g.SetEdgeAttribute(e, graph.AttrHidden, false)
				}
			}
		}
	}

	s.process()
	s.refresh()
	if rec {
		newNodes := make([]graph.SerializedNode, len(nodes))
		for i, n := range nodes {
			newNodes[i] = n.Clone()
		}
		s.addAction(&history.UpsertNodesChange{Old: old, New: newNodes, Created: created})
	}
	return true
}

// DropNodes removes the nodes and every incident edge. Absent keys are
// skipped. It reports false when nothing was dropped or while the worker is
// active.
func (s *Session) DropNodes(keys []string, opts ...MutationOption) bool {
	s.lock()
	defer s.unlock()
	return s.dropNodes(keys, record(opts))
}

func (s *Session) dropNodes(keys []string, rec bool) bool {
	if len(keys) == 0 {
		s.reject("dropNodes", "empty input")
		return false
	}
	if s.workerBusy("dropNodes") {
		return false
	}
	var present []string
	for _, k := range keys {
		if s.g.HasNode(k) && !slices.Contains(present, k) {
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		s.reject("dropNodes", "no such nodes")
		return false
	}

	edges := snapshot.IncidentEdges(s.g, present)
	nodes := snapshot.Nodes(s.g, present)

	edgeKeys := make([]string, len(edges))
	for i, e := range edges {
		edgeKeys[i] = e.Key
	}
	s.forget(present, edgeKeys)
	for _, k := range present {
		_ = s.g.DropNode(k)
	}

	s.process()
	s.refresh()
	if rec {
		s.addAction(&history.DropNodesChange{Nodes: nodes, Edges: edges})
	}
	return true
}

// forget clears transient state that refers to elements about to disappear.
func (s *Session) forget(nodes, edges []string) {
	s.hl.Forget(nodes, edges)
	for _, k := range nodes {
		if s.hovered == k {
			s.hovered = ""
		}
		if s.infoBox != nil && s.infoBox.Node == k {
			s.hideInfoBox(true)
			s.infoBox = nil
			s.infoSeq++
		}
		if s.pointer.dragged == k || s.pointer.node == k {
			s.pointer = pointerState{}
		}
		if s.menu != nil && s.menu.Node == k {
			s.menu = nil
		}
	}
}

// =============================================================================
// Edges
// =============================================================================

// MergeEdges creates missing edges and merges attributes into existing ones.
// Edges are matched by key, or by source and target when the key is empty.
// Every endpoint is validated before anything is applied; it reports false
// for empty input, unknown endpoints, a key reused with other endpoints, or
// while the worker is active.
func (s *Session) MergeEdges(edges []graph.SerializedEdge, opts ...MutationOption) bool {
	s.lock()
	defer s.unlock()
	return s.mergeEdges(edges, record(opts))
}

func (s *Session) mergeEdges(edges []graph.SerializedEdge, rec bool) bool {
	if len(edges) == 0 {
		s.reject("mergeEdges", "empty input")
		return false
	}
	if s.workerBusy("mergeEdges") {
		return false
	}
	if err := s.validateEdges(edges); err != nil {
		s.logger.Warn("edge merge rejected", "err", err)
		s.reject("mergeEdges", "invalid edges")
		return false
	}

	var touched []string
	for _, e := range edges {
		switch {
		case e.Key != "" && s.g.HasEdge(e.Key):
			touched = append(touched, e.Key)
		case e.Key == "":
			if existing := s.g.EdgesBetween(e.Source, e.Target); len(existing) > 0 {
				touched = append(touched, existing[0])
			}
		}
	}
	old := snapshot.Edges(s.g, touched)

	resolved := make([]graph.SerializedEdge, 0, len(edges))
	var created []string
	for _, e := range edges {
		key, isNew, err := s.g.MergeEdge(e.Key, e.Source, e.Target, e.Attributes)
		if err != nil {
			s.logger.Warn("merge edge failed", "edge", e.Key, "err", err)
			continue
		}
		if isNew {
			created = append(created, key)
		}
		r := e.Clone()
		r.Key = key
		resolved = append(resolved, r)
	}

	s.process()
	s.refresh()
	if rec {
		s.addAction(&history.UpsertEdgesChange{Old: old, New: resolved, Created: created})
	}
	return true
}

// validateEdges checks endpoints and key consistency against the graph and
// against earlier edges of the same input.
func (s *Session) validateEdges(edges []graph.SerializedEdge) error {
	seen := make(map[string][2]string)
	for _, e := range edges {
		if !s.g.HasNode(e.Source) {
			return errors.New(errors.ErrCodeNodeNotFound, "unknown source %q", e.Source)
		}
		if !s.g.HasNode(e.Target) {
			return errors.New(errors.ErrCodeNodeNotFound, "unknown target %q", e.Target)
		}
		if e.Key == "" {
			continue
		}
		ends := [2]string{e.Source, e.Target}
		if src, tgt, ok := s.g.Extremities(e.Key); ok && (src != e.Source || tgt != e.Target) {
			return errors.New(errors.ErrCodeInvalidInput, "edge %q connects %s->%s", e.Key, src, tgt)
		}
		if prev, ok := seen[e.Key]; ok && prev != ends {
			return errors.New(errors.ErrCodeInvalidInput, "edge %q given twice with different endpoints", e.Key)
		}
		seen[e.Key] = ends
	}
	return nil
}

// ReplaceEdges swaps the entire edge set for edges. It reports false for
// empty input, unknown endpoints, or while the worker is active.
func (s *Session) ReplaceEdges(edges []graph.SerializedEdge, opts ...MutationOption) bool {
	s.lock()
	defer s.unlock()
	return s.replaceEdges(edges, record(opts))
}

func (s *Session) replaceEdges(edges []graph.SerializedEdge, rec bool) bool {
	if len(edges) == 0 {
		s.reject("replaceEdges", "empty input")
		return false
	}
	if s.workerBusy("replaceEdges") {
		return false
	}
	if err := s.validateReplacement(edges); err != nil {
		s.logger.Warn("edge replacement rejected", "err", err)
		s.reject("replaceEdges", "invalid edges")
		return false
	}

	old := snapshot.AllEdges(s.g)
	s.hl.Forget(nil, s.g.Edges())
	s.g.ClearEdges()

	resolved := make([]graph.SerializedEdge, 0, len(edges))
	for _, e := range edges {
		key, _, err := s.g.MergeEdge(e.Key, e.Source, e.Target, e.Attributes)
		if err != nil {
			s.logger.Warn("add edge failed", "edge", e.Key, "err", err)
			continue
		}
		r := e.Clone()
		r.Key = key
		resolved = append(resolved, r)
	}

	s.process()
	s.refresh()
	if rec {
		s.addAction(&history.ReplaceEdgesChange{Old: old, New: resolved})
	}
	return true
}

// validateReplacement is validateEdges against an empty edge set.
func (s *Session) validateReplacement(edges []graph.SerializedEdge) error {
	seen := make(map[string][2]string)
	for _, e := range edges {
		if !s.g.HasNode(e.Source) {
			return errors.New(errors.ErrCodeNodeNotFound, "unknown source %q", e.Source)
		}
		if !s.g.HasNode(e.Target) {
			return errors.New(errors.ErrCodeNodeNotFound, "unknown target %q", e.Target)
		}
		if e.Key == "" {
			continue
		}
		ends := [2]string{e.Source, e.Target}
		if prev, ok := seen[e.Key]; ok && prev != ends {
			return errors.New(errors.ErrCodeInvalidInput, "edge %q given twice with different endpoints", e.Key)
		}
		seen[e.Key] = ends
	}
	return nil
}

// setEdges restores an exact edge set. Used by undo and redo of replacements.
func (s *Session) setEdges(edges []graph.SerializedEdge) error {
	if err := s.restorable(edges, nil); err != nil {
		return err
	}
	s.hl.Forget(nil, s.g.Edges())
	s.g.ClearEdges()
	err := snapshot.RestoreEdges(s.g, edges)
	s.process()
	s.refresh()
	return err
}

// =============================================================================
// Display settings
// =============================================================================

// ToggleEdgeRendering hides or shows all edges. A nil value flips the
// current setting.
func (s *Session) ToggleEdgeRendering(value *bool, opts ...MutationOption) bool {
	s.lock()
	defer s.unlock()
	return s.toggleEdgeRendering(value, record(opts))
}

func (s *Session) toggleEdgeRendering(value *bool, rec bool) bool {
	if s.workerBusy("toggleEdgeRendering") {
		return false
	}
	old := s.cfg.HideEdges
	next := !old
	if value != nil {
		next = *value
	}
	s.cfg.HideEdges = next
	s.pushSettings()
	s.refresh()
	if rec {
		s.addAction(&history.ToggleEdgeRenderingChange{Old: old, New: next})
	}
	return true
}

// ToggleJustImportantEdgeRendering restricts edge rendering to important
// edges. A nil value flips the current setting. Either way edges are shown
// afterwards.
func (s *Session) ToggleJustImportantEdgeRendering(value *bool, opts ...MutationOption) bool {
	s.lock()
	defer s.unlock()
	return s.toggleJustImportant(value, record(opts))
}

func (s *Session) toggleJustImportant(value *bool, rec bool) bool {
	if s.workerBusy("toggleJustImportantEdgeRendering") {
		return false
	}
	old, oldHide := s.cfg.RenderJustImportantEdges, s.cfg.HideEdges
	next := !old
	if value != nil {
		next = *value
	}
	s.cfg.RenderJustImportantEdges = next
	s.cfg.HideEdges = false
	s.pushSettings()
	s.refresh()
	if rec {
		s.addAction(&history.ToggleImportantEdgesChange{Old: old, New: next, OldHideEdges: oldHide})
	}
	return true
}

// SetAndApplyDefaultNodeType changes the shape of nodes without a type
// attribute. It reports false before Render, for an unknown type, or while
// the worker is active.
func (s *Session) SetAndApplyDefaultNodeType(t config.NodeType, opts ...MutationOption) bool {
	s.lock()
	defer s.unlock()
	return s.setDefaultNodeType(t, record(opts))
}

func (s *Session) setDefaultNodeType(t config.NodeType, rec bool) bool {
	if !s.rendering {
		return false
	}
	if !config.ValidNodeTypes[t] {
		s.reject("setAndApplyDefaultNodeType", fmt.Sprintf("invalid node type %q", t))
		return false
	}
	if s.workerBusy("setAndApplyDefaultNodeType") {
		return false
	}
	old := s.cfg.DefaultNodeType
	s.cfg.DefaultNodeType = t
	s.pushSettings()
	s.process()
	s.refresh()
	if rec {
		s.addAction(&history.SetDefaultNodeTypeChange{Old: old, New: t})
	}
	return true
}

// SetAppMode switches between dynamic (draggable) and static mode.
func (s *Session) SetAppMode(m config.AppMode, opts ...MutationOption) bool {
	s.lock()
	defer s.unlock()
	return s.setAppMode(m, record(opts))
}

func (s *Session) setAppMode(m config.AppMode, rec bool) bool {
	if !config.ValidAppModes[m] {
		s.reject("setAppMode", fmt.Sprintf("invalid app mode %q", m))
		return false
	}
	if s.workerBusy("setAppMode") {
		return false
	}
	old := s.cfg.AppMode
	s.cfg.AppMode = m
	if m == config.AppModeStatic {
		s.pointer.dragging, s.pointer.dragged = false, ""
	}
	if rec {
		s.addAction(&history.AppModeChange{Old: old, New: m})
	}
	return true
}

// ToggleNodeBackdropRendering sets the cluster colors and shows or hides the
// node backdrop. A nil enable flips it. Backdrop changes are not recorded.
func (s *Session) ToggleNodeBackdropRendering(colors map[string]string, enable *bool) error {
	s.lock()
	defer s.unlock()
	if !s.rendering {
		return errors.New(errors.ErrCodeRenderingInactive, "rendering is not active")
	}
	for cat, c := range colors {
		if err := errors.ValidateColor(c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "cluster %q", cat)
		}
	}
	if colors != nil {
		s.cfg.ClusterColors = make(map[string]string, len(colors))
		for k, v := range colors {
			s.cfg.ClusterColors[k] = v
		}
	}
	if enable != nil {
		s.cfg.RenderNodeBackdrop = *enable
	} else {
		s.cfg.RenderNodeBackdrop = !s.cfg.RenderNodeBackdrop
	}
	s.pushSettings()
	s.process()
	s.scheduleRender()
	return nil
}

// HighlightNode emphasizes key through the renderer for d. The highlight is
// not recorded and does not touch the hover sets.
func (s *Session) HighlightNode(key string, d time.Duration) bool {
	s.lock()
	defer s.unlock()
	if !s.rendering || !s.g.HasNode(key) {
		return false
	}
	r := s.renderer
	s.post(func() { r.HighlightNode(key) })

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.lock()
		defer s.unlock()
		delete(s.timers, t)
		if !s.rendering {
			return
		}
		s.post(func() { r.UnhighlightNode(key) })
	})
	s.timers[t] = struct{}{}
	return true
}
