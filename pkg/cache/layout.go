package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/webgraph/pkg/graph"
	"github.com/matzehuels/webgraph/pkg/layout"
	"github.com/matzehuels/webgraph/pkg/observability"
)

const layoutKeyType = "layout"

// DefaultLayoutTTL bounds how long a cached layout is kept.
const DefaultLayoutTTL = 7 * 24 * time.Hour

// LayoutCache stores ForceAtlas2 results keyed by the exact topology they
// were computed from. ForceAtlas2 is deterministic for a given topology and
// settings, so a hit is indistinguishable from a fresh run.
type LayoutCache struct {
	cache Cache
	keyer Keyer
	ttl   time.Duration
}

// NewLayoutCache wraps c. A nil keyer uses DefaultKeyer; a zero ttl uses
// DefaultLayoutTTL.
func NewLayoutCache(c Cache, keyer Keyer, ttl time.Duration) *LayoutCache {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	if ttl == 0 {
		ttl = DefaultLayoutTTL
	}
	return &LayoutCache{cache: c, keyer: keyer, ttl: ttl}
}

// TopologyHash identifies a ForceAtlas2 input.
func TopologyHash(t layout.Topology) (string, error) {
	return HashJSON(t)
}

// Get returns the cached result for the topology hash and options.
// It returns ErrCacheMiss when nothing is stored.
func (lc *LayoutCache) Get(ctx context.Context, topologyHash string, opts layout.ForceAtlas2Options) (graph.Positions, error) {
	key := lc.key(topologyHash, opts)
	data, ok, err := lc.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, layoutKeyType)
		return nil, ErrCacheMiss
	}
	var pos graph.Positions
	if err := json.Unmarshal(data, &pos); err != nil {
		_ = lc.cache.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	observability.Cache().OnCacheHit(ctx, layoutKeyType)
	return pos, nil
}

// Put stores a result.
func (lc *LayoutCache) Put(ctx context.Context, topologyHash string, opts layout.ForceAtlas2Options, pos graph.Positions) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	if err := lc.cache.Set(ctx, lc.key(topologyHash, opts), data, lc.ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, layoutKeyType, len(data))
	return nil
}

func (lc *LayoutCache) key(topologyHash string, opts layout.ForceAtlas2Options) string {
	return lc.keyer.LayoutKey(topologyHash, LayoutKeyOpts{Kind: string(layout.KindForceAtlas2), Config: opts})
}
