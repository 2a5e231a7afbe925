// Package storetest provides a conformance suite for store backends.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/layout"
	"github.com/matzehuels/webgraph/pkg/store"
)

// RunContract verifies that st adheres to the store.Store contract. The
// store should be empty when the suite starts.
func RunContract(t *testing.T, st store.Store) {
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		doc := sampleDocument("contract-roundtrip")
		require.NoError(t, st.Set(ctx, doc))

		loaded, err := st.Get(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, loaded.ID)
		assert.Equal(t, layout.KindCircular, loaded.Config.Layout)
		assert.True(t, loaded.Config.EnableHistory)
		assert.Equal(t, "#ff0000", loaded.Config.ClusterColors["a"])
		require.Len(t, loaded.Graph.Nodes, 2)
		assert.Equal(t, "n1", loaded.Graph.Nodes[0].Key)
		assert.Equal(t, 1.5, loaded.Graph.Nodes[0].Attributes[graph.AttrX])
		require.Len(t, loaded.Graph.Edges, 1)
		assert.Equal(t, "e1", loaded.Graph.Edges[0].Key)
		assert.WithinDuration(t, doc.ExpiresAt, loaded.ExpiresAt, time.Second)

		g, err := graph.Import(loaded.Graph)
		require.NoError(t, err)
		assert.True(t, g.HasEdgeBetween("n1", "n2"))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := st.Get(ctx, "contract-missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Replace", func(t *testing.T) {
		doc := sampleDocument("contract-replace")
		require.NoError(t, st.Set(ctx, doc))
		doc.Config.Layout = layout.KindRandom
		doc.Graph.Nodes = doc.Graph.Nodes[:1]
		doc.Graph.Edges = nil
		require.NoError(t, st.Set(ctx, doc))

		loaded, err := st.Get(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, layout.KindRandom, loaded.Config.Layout)
		assert.Len(t, loaded.Graph.Nodes, 1)
		assert.Empty(t, loaded.Graph.Edges)
	})

	t.Run("Delete", func(t *testing.T) {
		doc := sampleDocument("contract-delete")
		require.NoError(t, st.Set(ctx, doc))
		require.NoError(t, st.Delete(ctx, doc.ID))

		_, err := st.Get(ctx, doc.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.NoError(t, st.Delete(ctx, doc.ID), "deleting twice")
	})

	t.Run("List", func(t *testing.T) {
		for _, id := range []string{"contract-list-b", "contract-list-a"} {
			require.NoError(t, st.Set(ctx, sampleDocument(id)))
		}
		defer func() {
			_ = st.Delete(ctx, "contract-list-a")
			_ = st.Delete(ctx, "contract-list-b")
		}()

		ids, err := st.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "contract-list-a")
		assert.Contains(t, ids, "contract-list-b")
		assert.IsNonDecreasing(t, ids)
	})

	t.Run("Expiry", func(t *testing.T) {
		doc := sampleDocument("contract-expired")
		doc.ExpiresAt = time.Now().Add(-time.Hour)
		require.NoError(t, st.Set(ctx, doc))

		removed, err := st.Cleanup(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, removed, 1)

		_, err = st.Get(ctx, doc.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		ids, err := st.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, doc.ID)
	})

	t.Run("NoExpiry", func(t *testing.T) {
		doc := sampleDocument("contract-forever")
		doc.ExpiresAt = time.Time{}
		require.NoError(t, st.Set(ctx, doc))
		_, err := st.Cleanup(ctx)
		require.NoError(t, err)

		loaded, err := st.Get(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, loaded.ExpiresAt.IsZero())
	})
}

func sampleDocument(id string) *store.Document {
	cfg := config.Default()
	cfg.Layout = layout.KindCircular
	cfg.EnableHistory = true
	cfg.ClusterColors = map[string]string{"a": "#ff0000"}

	g := graph.Serialized{
		Nodes: []graph.SerializedNode{
			{Key: "n1", Attributes: graph.Attributes{graph.AttrX: 1.5, graph.AttrY: 2.0, graph.AttrCategory: "a"}},
			{Key: "n2", Attributes: graph.Attributes{graph.AttrX: 0.0, graph.AttrY: 0.0}},
		},
		Edges: []graph.SerializedEdge{
			{Key: "e1", Source: "n1", Target: "n2", Attributes: graph.Attributes{graph.AttrImportant: true}},
		},
	}
	return store.NewDocument(id, g, cfg, time.Hour)
}
