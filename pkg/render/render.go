package render

import (
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/webgraph/pkg/config"
)

// Settings are the display flags a renderer honors when drawing.
type Settings struct {
	HideEdges                bool
	RenderJustImportantEdges bool
	DefaultNodeType          config.NodeType
	RenderNodeBackdrop       bool
	ClusterColors            map[string]string
	LabelSelector            config.LabelSelector
}

// SettingsFrom extracts the display flags of a session configuration.
func SettingsFrom(c config.Configuration) Settings {
	return Settings{
		HideEdges:                c.HideEdges,
		RenderJustImportantEdges: c.RenderJustImportantEdges,
		DefaultNodeType:          c.DefaultNodeType,
		RenderNodeBackdrop:       c.RenderNodeBackdrop,
		ClusterColors:            maps.Clone(c.ClusterColors),
		LabelSelector:            c.LabelSelector,
	}
}

// Renderer draws a graph session.
//
// Implementations must not block: a slow renderer should coalesce
// notifications and draw on its own goroutine.
type Renderer interface {
	// Process is called after the set of nodes or edges changed.
	Process()
	// Refresh is called after node or edge attributes changed.
	Refresh()
	// ScheduleRender requests a redraw without re-reading the graph.
	ScheduleRender()
	// UpdateSettings replaces the display flags.
	UpdateSettings(Settings)
	// HighlightNode emphasizes a single node until UnhighlightNode.
	HighlightNode(key string)
	UnhighlightNode(key string)
	// Kill releases the renderer. No calls follow.
	Kill()
}

// Nop is a Renderer that ignores every call.
type Nop struct{}

func (Nop) Process()                {}
func (Nop) Refresh()                {}
func (Nop) ScheduleRender()         {}
func (Nop) UpdateSettings(Settings) {}
func (Nop) HighlightNode(string)    {}
func (Nop) UnhighlightNode(string)  {}
func (Nop) Kill()                   {}

// Recorder is a Renderer that records the calls it receives.
// It is safe for concurrent use.
type Recorder struct {
	mu          sync.Mutex
	processed   int
	refreshed   int
	scheduled   int
	settings    Settings
	highlighted []string
	killed      bool
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Process() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
}

func (r *Recorder) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed++
}

func (r *Recorder) ScheduleRender() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled++
}

func (r *Recorder) UpdateSettings(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
}

func (r *Recorder) HighlightNode(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.highlighted, key) {
		r.highlighted = append(r.highlighted, key)
	}
}

func (r *Recorder) UnhighlightNode(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlighted = slices.DeleteFunc(r.highlighted, func(k string) bool { return k == key })
}

func (r *Recorder) Kill() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.killed = true
}

// Counts returns how often Process, Refresh and ScheduleRender were called.
func (r *Recorder) Counts() (processed, refreshed, scheduled int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed, r.refreshed, r.scheduled
}

// Settings returns the last settings received.
func (r *Recorder) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// Highlighted returns the nodes currently highlighted via HighlightNode.
func (r *Recorder) Highlighted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.highlighted)
}

// Killed reports whether Kill was called.
func (r *Recorder) Killed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.killed
}
