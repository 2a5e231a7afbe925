package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/store"
	"github.com/matzehuels/webgraph/pkg/store/storetest"
)

// newTestStore creates an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestContract(t *testing.T) {
	storetest.RunContract(t, newTestStore(t))
}

func TestExpiryColumn(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	doc := store.NewDocument("col", graph.Serialized{}, config.Default(), time.Hour)
	require.NoError(t, st.Set(ctx, doc))

	var expires int64
	require.NoError(t, st.db.QueryRow(`SELECT expires_at FROM documents WHERE id = ?`, "col").Scan(&expires))
	assert.Equal(t, doc.ExpiresAt.UnixMilli(), expires)
}

func TestReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	st, err := New(path)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, store.NewDocument("persist", graph.Serialized{}, config.Default(), 0)))
	require.NoError(t, st.Close())

	st, err = New(path)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.Get(ctx, "persist")
	assert.NoError(t, err)
}
