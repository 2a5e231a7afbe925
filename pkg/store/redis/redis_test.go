package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/webgraph/pkg/config"
	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/store"
	"github.com/matzehuels/webgraph/pkg/store/redis"
	"github.com/matzehuels/webgraph/pkg/store/storetest"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	st := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { st.Close() })
	return st, mr
}

func TestContract(t *testing.T) {
	st, _ := newStore(t)
	storetest.RunContract(t, st)
}

func TestKeysAndIndex(t *testing.T) {
	st, mr := newStore(t, redis.WithPrefix("test:"))
	ctx := context.Background()

	doc := store.NewDocument("s1", graph.Serialized{}, config.Default(), time.Hour)
	require.NoError(t, st.Set(ctx, doc))

	assert.True(t, mr.Exists("test:s1"))
	members, err := mr.ZMembers("test:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, members)
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("test:s1").Seconds(), 2)

	require.NoError(t, st.Delete(ctx, "s1"))
	assert.False(t, mr.Exists("test:s1"))
}

func TestRedisEviction(t *testing.T) {
	st, mr := newStore(t)
	ctx := context.Background()

	doc := store.NewDocument("short", graph.Serialized{}, config.Default(), time.Minute)
	require.NoError(t, st.Set(ctx, doc))
	mr.FastForward(2 * time.Minute)

	_, err := st.Get(ctx, "short")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNewUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := redis.New(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}
