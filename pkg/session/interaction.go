package session

import (
	"context"
	"fmt"
	"math"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/events"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/highlight"
)

// clickThreshold is the largest pointer travel, per axis, that still counts
// as a click rather than a drag.
const clickThreshold = 3

// Pointer buttons.
const (
	ButtonLeft   = 0
	ButtonMiddle = 1
	ButtonRight  = 2
)

// =============================================================================
// Widget types
// =============================================================================

// InfoBox is the content shown next to a node.
type InfoBox struct {
	Node      string  `json:"node"`
	PreHeader string  `json:"preHeader,omitempty"`
	Header    string  `json:"header,omitempty"`
	Content   string  `json:"content,omitempty"`
	Footer    string  `json:"footer,omitempty"`
	Top       float64 `json:"posTop"`
	Left      float64 `json:"posLeft"`
	// Fallback is set when the provider failed and only the node label is
	// shown.
	Fallback bool `json:"fallback,omitempty"`
}

// InfoBoxProvider produces the info box content for a node. score is the
// node's score attribute, if any.
type InfoBoxProvider func(ctx context.Context, key string, score *float64) (InfoBox, error)

// InfoBoxConfig configures the node info box. Nodes whose category has no
// provider get no info box.
type InfoBoxConfig struct {
	Providers map[string]InfoBoxProvider
	XOffset   float64
	YOffset   float64
}

// MenuItem is one context menu entry. Callback receives the node the menu
// was opened on and runs outside the session lock.
type MenuItem struct {
	Label    string
	Icon     string
	Callback func(node string)
}

// ContextMenuConfig configures the node context menu by category.
type ContextMenuConfig struct {
	Entries map[string][]MenuItem
	XOffset float64
	YOffset float64
}

// OpenMenu is the context menu currently shown.
type OpenMenu struct {
	Node  string
	Items []MenuItem
	Top   float64
	Left  float64
}

type pointerState struct {
	node     string // node under the last press
	startX   float64
	startY   float64
	dragged  string
	dragging bool
}

// =============================================================================
// Drag and click
// =============================================================================

// HandleDownNode records a press on key. Outside static mode, a press with
// any button but the right one starts dragging the node.
func (s *Session) HandleDownNode(key string, p events.Pointer) {
	s.lock()
	defer s.unlock()
	if !s.rendering || !s.g.HasNode(key) {
		return
	}
	s.pointer.node, s.pointer.startX, s.pointer.startY = key, p.X, p.Y
	if s.cfg.AppMode == config.AppModeStatic || p.Button == ButtonRight {
		return
	}
	s.pointer.dragging, s.pointer.dragged = true, key
	s.emit(events.Event{Name: events.DragNode, Node: key, Pointer: &p})
}

// HandlePointerMove moves the dragged node to the pointer.
func (s *Session) HandlePointerMove(p events.Pointer) {
	s.lock()
	defer s.unlock()
	if s.cfg.AppMode == config.AppModeStatic || !s.pointer.dragging {
		return
	}
	if !s.g.HasNode(s.pointer.dragged) {
		return
	}
	_ = s.g.SetPosition(s.pointer.dragged, graph.Position{X: p.X, Y: p.Y})
	s.refresh()
}

// HandlePointerUp ends a press. A release close to the press point is a
// click: it emits clickNode and, in click mode, opens the info box.
// Otherwise a drag ends with draggedNode.
func (s *Session) HandlePointerUp(p events.Pointer) {
	s.lock()
	defer s.unlock()
	if !s.rendering {
		return
	}
	node := s.pointer.node
	primary := p.Button == ButtonLeft || p.Button == ButtonMiddle
	isClick := math.Abs(p.X-s.pointer.startX) < clickThreshold && math.Abs(p.Y-s.pointer.startY) < clickThreshold

	switch {
	case node != "" && primary && isClick:
		s.emit(events.Event{Name: events.ClickNode, Node: node, Pointer: &p})
		if s.cfg.ShowNodeInfoBoxOnClick && s.g.HasNode(node) && !s.nodeHidden(node) {
			s.openInfoBox(node, p.X, p.Y)
		}
	case s.pointer.dragged != "" && primary:
		s.emit(events.Event{Name: events.DraggedNode, Node: s.pointer.dragged, Pointer: &p})
	}

	s.pointer.node = ""
	if s.cfg.AppMode == config.AppModeStatic {
		return
	}
	s.pointer.dragging, s.pointer.dragged = false, ""
}

// =============================================================================
// Hover
// =============================================================================

// HandleEnterNode starts a hover over key. With subgraph highlighting the
// node, its neighbors and connecting edges are highlighted. Unless info
// boxes open on click, the info box is shown.
func (s *Session) HandleEnterNode(key string) {
	s.lock()
	defer s.unlock()
	if !s.rendering || !s.g.HasNode(key) {
		return
	}
	s.hovered = key
	s.emit(events.Event{Name: events.EnterNode, Node: key})

	if s.cfg.HighlightSubGraphOnHover {
		traverse := !s.cfg.HideEdges && !s.nodeHidden(key)
		s.hl.Enter(s.g, key, traverse, highlight.Options{
			JustImportantEdges:        s.cfg.RenderJustImportantEdges,
			IncludeImportantNeighbors: s.cfg.IncludeImportantNeighbors,
			Bidirectional:             s.cfg.ImportantNeighborsBidirectional,
		})
		s.refresh()
	}

	if !s.cfg.ShowNodeInfoBoxOnClick && !s.pointer.dragging {
		if pos, ok := s.g.Position(key); ok {
			s.openInfoBox(key, pos.X, pos.Y)
		}
	}
}

// HandleLeaveNode ends the hover over key and resets the highlight.
func (s *Session) HandleLeaveNode(key string) {
	s.lock()
	defer s.unlock()
	if !s.rendering {
		return
	}
	s.emit(events.Event{Name: events.LeaveNode, Node: key})
	s.hovered = ""
	if !s.infoVisible {
		s.infoSeq++
	}
	if s.cfg.HighlightSubGraphOnHover {
		s.hl.Leave(s.g)
		s.refresh()
	}
	s.hideInfoBox(false)
}

// =============================================================================
// Info box
// =============================================================================

// InfoBox returns the info box currently shown, if any. A fallback box is
// returned with visible false.
func (s *Session) InfoBox() (box InfoBox, visible bool) {
	s.lock()
	defer s.unlock()
	if s.infoBox == nil {
		return InfoBox{}, false
	}
	return *s.infoBox, s.infoVisible
}

// openInfoBox asks the category's provider for content. The provider runs
// on its own goroutine; a newer request supersedes an older one.
func (s *Session) openInfoBox(key string, x, y float64) {
	if len(s.infoBoxCfg.Providers) == 0 {
		return
	}
	cat, ok := s.g.NodeAttribute(key, graph.AttrCategory)
	if !ok {
		return
	}
	provider := s.infoBoxCfg.Providers[fmt.Sprint(cat)]
	if provider == nil {
		return
	}
	var score *float64
	if v, ok := s.g.NodeAttribute(key, graph.AttrScore); ok {
		if f, ok := graph.ToFloat(v); ok {
			score = &f
		}
	}
	attrs, _ := s.g.NodeAttributes(key)

	s.infoSeq++
	seq, ctx := s.infoSeq, s.ctx
	top, left := y+s.infoBoxCfg.YOffset, x+s.infoBoxCfg.XOffset
	go func() {
		box, err := provider(ctx, key, score)

		s.lock()
		defer s.unlock()
		if s.infoSeq != seq || !s.rendering {
			return
		}
		if err != nil {
			s.logger.Warn("info box provider failed", "node", key, "err", err)
			label, _ := attrs.String(graph.AttrLabel)
			s.infoBox = &InfoBox{Node: key, Header: label, Top: top, Left: left, Fallback: true}
			s.infoVisible = false
			s.scheduleRender()
			return
		}
		box.Node, box.Top, box.Left = key, top, left
		s.infoBox, s.infoVisible = &box, true
		s.emit(events.Event{
			Name: events.NodeInfoBoxOpened,
			Node: key,
			Data: map[string]any{"data": attrs, "posTop": top, "posLeft": left},
		})
	}()
}

// hideInfoBox closes a visible info box. A hover close is ignored while a
// node is still hovered.
func (s *Session) hideInfoBox(byRightClick bool) {
	if !s.infoVisible {
		return
	}
	if !byRightClick && s.hovered != "" {
		return
	}
	node := s.infoBox.Node
	s.infoBox, s.infoVisible = nil, false
	s.emit(events.Event{Name: events.NodeInfoBoxClosed, Node: node, Data: map[string]any{"byRightClick": byRightClick}})
}

// =============================================================================
// Context menu
// =============================================================================

// HandleRightClickNode emits rightClickNode and opens the context menu for
// the node's category.
func (s *Session) HandleRightClickNode(key string, p events.Pointer) {
	s.lock()
	defer s.unlock()
	if !s.rendering || !s.g.HasNode(key) {
		return
	}
	s.emit(events.Event{Name: events.RightClickNode, Node: key, Pointer: &p})
	if len(s.menuCfg.Entries) == 0 || s.nodeHidden(key) {
		return
	}
	s.menuNode = key
	s.menu = nil

	cat, ok := s.g.NodeAttribute(key, graph.AttrCategory)
	if !ok {
		return
	}
	items := s.menuCfg.Entries[fmt.Sprint(cat)]
	if len(items) == 0 {
		return
	}
	top, left := p.Y+s.menuCfg.YOffset, p.X+s.menuCfg.XOffset
	s.menu = &OpenMenu{Node: key, Items: items, Top: top, Left: left}
	s.hideInfoBox(true)
	s.emit(events.Event{Name: events.ContextMenuOpened, Node: key, Data: map[string]any{"posTop": top, "posLeft": left}})
}

// HandleStageClick closes the info box and the context menu.
func (s *Session) HandleStageClick(p events.Pointer) {
	s.lock()
	defer s.unlock()
	if !s.rendering {
		return
	}
	s.hideInfoBox(false)
	if s.menu == nil {
		return
	}
	s.menu = nil
	s.emit(events.Event{Name: events.ContextMenuClosed, Node: s.menuNode, Pointer: &p})
}

// ContextMenu returns the open context menu.
func (s *Session) ContextMenu() (OpenMenu, bool) {
	s.lock()
	defer s.unlock()
	if s.menu == nil {
		return OpenMenu{}, false
	}
	return *s.menu, true
}

// SelectContextMenuItem runs the callback of item i of the open menu and
// closes it. It reports false when no menu is open or i is out of range.
func (s *Session) SelectContextMenuItem(i int) bool {
	s.lock()
	defer s.unlock()
	if s.menu == nil || i < 0 || i >= len(s.menu.Items) {
		return false
	}
	item, node := s.menu.Items[i], s.menu.Node
	s.menu = nil
	if item.Callback != nil {
		s.post(func() { item.Callback(node) })
	}
	return true
}
