package session

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/webgraph/pkg/cache"
	"github.com/matzehuels/webgraph/pkg/layout"
	"github.com/matzehuels/webgraph/pkg/render"
)

// Option configures a Session.
type Option func(*Session)

// WithRenderer sets the renderer notified after changes. The default ignores
// every notification.
func WithRenderer(r render.Renderer) Option {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLayoutCache caches synchronous ForceAtlas2 results by topology.
func WithLayoutCache(c *cache.LayoutCache) Option {
	return func(s *Session) { s.layoutCache = c }
}

// WithAnimation sets the layout transition used by synchronous layouts and
// by undo/redo of layout changes.
func WithAnimation(opts layout.AnimationOptions) Option {
	return func(s *Session) { s.anim = opts }
}

// WithAnimationDuration keeps the default easing and changes the duration.
// Zero applies layouts instantly.
func WithAnimationDuration(d time.Duration) Option {
	return func(s *Session) { s.anim.Duration = d }
}

// WithWorkerInterval sets the pause between two background worker
// iterations.
func WithWorkerInterval(d time.Duration) Option {
	return func(s *Session) { s.workerInterval = d }
}

// WithInfoBox enables the node info box.
func WithInfoBox(cfg InfoBoxConfig) Option {
	return func(s *Session) { s.infoBoxCfg = cfg }
}

// WithContextMenu enables the node context menu.
func WithContextMenu(cfg ContextMenuConfig) Option {
	return func(s *Session) { s.menuCfg = cfg }
}

// WithID sets the session identifier. The default is a random UUID.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// MutationOption modifies a single mutation call.
type MutationOption func(*mutationOptions)

type mutationOptions struct {
	skipHistory bool
}

// SkipHistory applies the mutation without recording it.
func SkipHistory() MutationOption {
	return func(o *mutationOptions) { o.skipHistory = true }
}

func record(opts []MutationOption) bool {
	var o mutationOptions
	for _, opt := range opts {
		opt(&o)
	}
	return !o.skipHistory
}
