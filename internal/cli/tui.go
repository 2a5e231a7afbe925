package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/events"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/layout"
	"github.com/matzehuels/webgraph/pkg/render"
	"github.com/matzehuels/webgraph/pkg/session"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	canvasStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
)

const (
	canvasWidth  = 56
	canvasHeight = 16
	listHeight   = 12
)

// exploreLayouts is the cycle of the l key.
var exploreLayouts = []layout.Kind{layout.KindRandom, layout.KindCircular, layout.KindCirclePack, layout.KindForceAtlas2}

// exploreCommand creates the explore command, an interactive terminal view
// over a live session.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		opts     sessionOpts
		noWorker bool
	)

	cmd := &cobra.Command{
		Use:   "explore [graph.json]",
		Short: "Explore a graph session in the terminal",
		Long: `Explore a graph session in the terminal.

The graph is loaded into a session with history enabled and the ForceAtlas2
worker running. Moving the cursor hovers nodes and highlights their
neighborhood; every edit can be undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := opts.loadFile()
			if err != nil {
				return err
			}
			cfg := file.Configuration
			cfg.EnableHistory = true
			cfg.InitializeForceAtlas2Worker = !noWorker
			return c.runExplore(cmd.Context(), args[0], cfg, file.InfoBox, opts.noCache)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "do not start the ForceAtlas2 worker")

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, input string, cfg config.Configuration, infoBoxes map[string]string, noCache bool) error {
	r := &teaRenderer{}
	sess, cleanup, err := c.openSession(input, cfg, noCache, session.WithRenderer(r), infoBoxOption(infoBoxes, noCache))
	if err != nil {
		return err
	}
	defer cleanup()

	if err := sess.Render(ctx); err != nil {
		return fmt.Errorf("render session: %w", err)
	}
	// Info boxes arrive asynchronously and are announced only as events.
	defer sess.SubscribeAll(func(events.Event) { r.notify() })()

	p := tea.NewProgram(NewExploreModel(sess, r), tea.WithAltScreen(), tea.WithContext(ctx))
	r.program.Store(p)
	if _, err := p.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run explorer: %w", err)
	}
	return nil
}

// =============================================================================
// Renderer bridge
// =============================================================================

// redrawMsg asks the model to redraw after the session changed.
type redrawMsg struct{}

// teaRenderer forwards session redraws to a bubbletea program. Notifications
// arrive while Update may be running, so sends are asynchronous and
// coalesced: at most one redraw is in flight.
type teaRenderer struct {
	render.Nop
	program atomic.Pointer[tea.Program]
	pending atomic.Bool
}

func (r *teaRenderer) notify() {
	p := r.program.Load()
	if p == nil || !r.pending.CompareAndSwap(false, true) {
		return
	}
	go p.Send(redrawMsg{})
}

func (r *teaRenderer) Process()                       { r.notify() }
func (r *teaRenderer) Refresh()                       { r.notify() }
func (r *teaRenderer) ScheduleRender()                { r.notify() }
func (r *teaRenderer) UpdateSettings(render.Settings) { r.notify() }

// =============================================================================
// ExploreModel - Interactive session explorer
// =============================================================================

// ExploreModel is the bubbletea model for browsing and editing a session.
type ExploreModel struct {
	Session  *session.Session
	Keys     []string
	Cursor   int
	Offset   int
	Status   string
	renderer *teaRenderer
}

// NewExploreModel creates a model over a rendered session.
func NewExploreModel(sess *session.Session, r *teaRenderer) ExploreModel {
	m := ExploreModel{Session: sess, renderer: r}
	m.reload()
	return m
}

func (m *ExploreModel) reload() {
	m.Keys = m.Keys[:0]
	for key := range m.Session.Positions() {
		m.Keys = append(m.Keys, key)
	}
	slices.Sort(m.Keys)
	if m.Cursor >= len(m.Keys) {
		m.Cursor = max(len(m.Keys)-1, 0)
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

func (m ExploreModel) current() string {
	if m.Cursor < len(m.Keys) {
		return m.Keys[m.Cursor]
	}
	return ""
}

func (m ExploreModel) Init() tea.Cmd {
	if key := m.current(); key != "" {
		m.Session.HandleEnterNode(key)
	}
	return nil
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case redrawMsg:
		m.renderer.pending.Store(false)
		m.reload()
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m ExploreModel) handleKey(key string) (tea.Model, tea.Cmd) {
	sess := m.Session
	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "d":
		node := m.current()
		if node != "" && sess.DropNodes([]string{node}) {
			m.Status = "dropped " + node
		} else {
			m.Status = "drop refused"
		}
	case "u":
		m.Status = outcome("undo", sess.Undo)
	case "r":
		m.Status = outcome("redo", sess.Redo)
	case "l":
		next := exploreLayouts[0]
		if i := slices.Index(exploreLayouts, sess.LayoutState().Kind); i >= 0 {
			next = exploreLayouts[(i+1)%len(exploreLayouts)]
		}
		m.Status = outcome("layout "+string(next), func() (bool, error) {
			return sess.SetAndApplyLayout(next, sess.Configuration().LayoutConfig)
		})
	case "w":
		m.Status = outcome("worker toggle", func() (bool, error) { return sess.ToggleForceAtlas2Worker() })
	case "e":
		if sess.ToggleEdgeRendering(nil) {
			m.Status = fmt.Sprintf("edges hidden: %v", sess.Configuration().HideEdges)
		}
	case "i":
		if sess.ToggleJustImportantEdgeRendering(nil) {
			m.Status = fmt.Sprintf("important edges only: %v", sess.Configuration().RenderJustImportantEdges)
		}
	}
	m.reload()
	return m, nil
}

// move shifts the hover cursor and moves the session hover with it.
func (m *ExploreModel) move(delta int) {
	if len(m.Keys) == 0 {
		return
	}
	next := min(max(m.Cursor+delta, 0), len(m.Keys)-1)
	if next == m.Cursor {
		return
	}
	m.Session.HandleLeaveNode(m.current())
	m.Cursor = next
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+listHeight {
		m.Offset = m.Cursor - listHeight + 1
	}
	m.Session.HandleEnterNode(m.current())
}

func outcome(what string, op func() (bool, error)) string {
	ok, err := op()
	switch {
	case err != nil:
		return what + ": " + err.Error()
	case !ok:
		return what + " refused"
	}
	return what
}

func (m ExploreModel) View() string {
	var b strings.Builder
	sess := m.Session
	st := sess.LayoutState()

	b.WriteString(StyleTitle.Render("webgraph explorer"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%d nodes · %d edges · %s · %s", sess.Order(), sess.Size(), st.Kind, st.State)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ hover  d drop  u/r undo/redo  l layout  w worker  e edges  i important  q quit"))
	b.WriteString("\n\n")

	highlighted := sess.HighlightedNodes()
	left := m.nodeTable(highlighted)
	right := canvasStyle.Render(drawCanvas(sess.Frame(), highlighted, m.current()))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))
	b.WriteString("\n")

	history := fmt.Sprintf("undo %s  redo %s", yesNo(sess.CanUndo()), yesNo(sess.CanRedo()))
	if st.WorkerActive {
		history += StyleNumber.Render(fmt.Sprintf("  worker iteration %d", st.WorkerIterations))
	}
	b.WriteString(listDimStyle.Render(history))
	if box, visible := sess.InfoBox(); visible {
		b.WriteString("\n")
		b.WriteString(infoBoxView(box))
	}
	if m.Status != "" {
		b.WriteString("\n")
		b.WriteString(listNormalStyle.Render(m.Status))
	}
	return b.String()
}

func (m ExploreModel) nodeTable(highlighted []string) string {
	end := min(m.Offset+listHeight, len(m.Keys))
	positions := m.Session.Positions()

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		key := m.Keys[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		p := positions[key]
		rows = append(rows, []string{cursor, key, fmt.Sprintf("%.2f", p.X), fmt.Sprintf("%.2f", p.Y)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "x", "y").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Keys) {
				return lipgloss.NewStyle()
			}
			switch {
			case idx == m.Cursor:
				return listSelectedStyle
			case slices.Contains(highlighted, m.Keys[idx]):
				return StyleHighlight
			}
			return listNormalStyle
		})

	footer := listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(m.Keys)), len(m.Keys)))
	return t.Render() + "\n" + footer
}

// drawCanvas plots frame nodes on a character grid scaled to their bounding
// box.
func drawCanvas(f render.Frame, highlighted []string, hovered string) string {
	grid := make([][]rune, canvasHeight)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", canvasWidth))
	}
	if len(f.Nodes) == 0 {
		return gridString(grid)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range f.Nodes {
		minX, maxX = math.Min(minX, n.X), math.Max(maxX, n.X)
		minY, maxY = math.Min(minY, n.Y), math.Max(maxY, n.Y)
	}
	cell := func(p graph.Position) (int, int) {
		return scale(p.X, minX, maxX, canvasWidth), scale(p.Y, minY, maxY, canvasHeight)
	}

	for _, n := range f.Nodes {
		col, row := cell(graph.Position{X: n.X, Y: n.Y})
		mark := '·'
		switch {
		case n.Key == hovered:
			mark = '◉'
		case slices.Contains(highlighted, n.Key):
			mark = '●'
		}
		if grid[row][col] != '◉' {
			grid[row][col] = mark
		}
	}
	return gridString(grid)
}

func scale(v, lo, hi float64, cells int) int {
	if hi-lo < 1e-9 {
		return cells / 2
	}
	i := int((v - lo) / (hi - lo) * float64(cells-1))
	return min(max(i, 0), cells-1)
}

func gridString(grid [][]rune) string {
	lines := make([]string, len(grid))
	for i, row := range grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}

func infoBoxView(box session.InfoBox) string {
	var lines []string
	if box.PreHeader != "" {
		lines = append(lines, listDimStyle.Render(box.PreHeader))
	}
	lines = append(lines, StyleTitle.Render(box.Header))
	if box.Content != "" {
		lines = append(lines, listNormalStyle.Render(box.Content))
	}
	if box.Footer != "" {
		lines = append(lines, listDimStyle.Render(box.Footer))
	}
	return canvasStyle.Render(strings.Join(lines, "\n"))
}

func yesNo(b bool) string {
	if b {
		return StyleSuccess.Render("yes")
	}
	return listDimStyle.Render("no")
}
