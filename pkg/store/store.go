// Package store persists graph session documents.
//
// A [Document] is the durable part of a session: the graph, the session
// configuration (including the current layout) and expiry bookkeeping.
// History, highlight state and running workers are never persisted.
//
// Backends:
//   - [MemoryStore]: in-process storage for tests and single-shot CLI runs
//   - [FileStore]: one JSON file per document, for the CLI
//   - redis: Redis-backed storage shared between server instances
//   - mongo: MongoDB collection keyed by document ID
//   - sqlite: embedded SQLite database (pure Go driver)
//
// # Usage
//
//	st, err := store.NewFileStore("")  // Uses ~/.config/webgraph/sessions/
//	doc := store.NewDocument(id, g.Export(), cfg, store.DefaultTTL)
//	if err := st.Set(ctx, doc); err != nil {
//	    return err
//	}
//	doc, err = st.Get(ctx, id)
//	if errors.Is(err, errors.ErrCodeSessionNotFound) {
//	    // Never saved, or expired
//	}
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/errors"
	"github.com/matzehuels/webgraph/pkg/graph"
)

// DefaultTTL is the default document lifetime.
const DefaultTTL = 24 * time.Hour

// Document is a persisted graph session.
type Document struct {
	ID        string               `json:"id"`
	Graph     graph.Serialized     `json:"graph"`
	Config    config.Configuration `json:"config"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	ExpiresAt time.Time            `json:"expiresAt"`
}

// NewDocument creates a document expiring ttl from now. A zero ttl never
// expires. An empty id gets a fresh one from NewID.
func NewDocument(id string, g graph.Serialized, cfg config.Configuration, ttl time.Duration) *Document {
	if id == "" {
		id = NewID()
	}
	now := time.Now()
	doc := &Document{
		ID:        id,
		Graph:     g,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ttl > 0 {
		doc.ExpiresAt = now.Add(ttl)
	}
	return doc
}

// IsExpired reports whether the document has outlived its TTL.
func (d *Document) IsExpired() bool {
	return !d.ExpiresAt.IsZero() && time.Now().After(d.ExpiresAt)
}

// TTL returns the remaining lifetime, or 0 for documents that never expire.
func (d *Document) TTL() time.Duration {
	if d.ExpiresAt.IsZero() {
		return 0
	}
	if ttl := time.Until(d.ExpiresAt); ttl > 0 {
		return ttl
	}
	return time.Millisecond
}

// Store is the interface for document storage backends.
type Store interface {
	// Get retrieves a document by ID.
	// Returns ErrNotFound if it doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Document, error)

	// Set stores a document, replacing any previous version.
	Set(ctx context.Context, doc *Document) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of every live document, sorted.
	List(ctx context.Context) ([]string, error)

	// Cleanup removes expired documents and reports how many it removed.
	Cleanup(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// ErrNotFound is returned when a document does not exist or has expired.
var ErrNotFound = errors.New(errors.ErrCodeSessionNotFound, "session not found")

// NotFound returns ErrNotFound annotated with id.
func NotFound(id string) error {
	return errors.Wrap(errors.ErrCodeSessionNotFound, ErrNotFound, "session %q", id)
}

// NewID returns a fresh document ID.
func NewID() string {
	return uuid.NewString()
}

// Validate checks the document ID.
func (d *Document) Validate() error {
	return errors.ValidateSessionID(d.ID)
}
