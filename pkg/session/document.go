package session

import (
	"time"

	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/store"
)

// Document captures the session for a store. Positions travel inside the
// graph's node attributes. A zero ttl never expires.
func (s *Session) Document(ttl time.Duration) *store.Document {
	s.lock()
	defer s.unlock()
	return store.NewDocument(s.id, s.g.Export(), s.cfg.Clone(), ttl)
}

// FromDocument rebuilds a session from a stored document. The session is
// not rendered yet.
func FromDocument(doc *store.Document, opts ...Option) (*Session, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil document")
	}
	g, err := graph.Import(doc.Graph)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "import session %s", doc.ID)
	}
	return New(g, doc.Config, append(opts, WithID(doc.ID))...)
}
