// Package redis stores session documents in Redis.
//
// Each document is a JSON string under prefix+id, expiring with the
// document. A sorted set at prefix+"index" scores every ID by its expiry
// time so List and Cleanup never scan the keyspace.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/matzehuels/webgraph/pkg/store"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "webgraph:session:"

// neverExpires is the index score of documents without an expiry
// (2100-01-01).
const neverExpires = 4102444800

// Store implements store.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New connects to the Redis server at addr and verifies the connection.
func New(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	client := backend.NewClient(&backend.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return NewFromClient(client, opts...), nil
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id string) string { return s.prefix + id }

func (s *Store) indexKey() string { return s.prefix + "index" }

// Set writes the document and its index entry in one pipeline.
func (s *Store) Set(ctx context.Context, doc *store.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	score := float64(neverExpires)
	if !doc.ExpiresAt.IsZero() {
		score = float64(doc.ExpiresAt.Unix())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(doc.ID), data, doc.TTL())
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: doc.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save to redis: %w", err)
	}
	return nil
}

// Get reads a document. Expired documents are reported as not found even
// if Redis has not evicted them yet.
func (s *Store) Get(ctx context.Context, id string) (*store.Document, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, store.NotFound(id)
		}
		return nil, fmt.Errorf("get from redis: %w", err)
	}

	var doc store.Document
	if err := json.Unmarshal(val, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.IsExpired() {
		return nil, store.NotFound(id)
	}
	return &doc, nil
}

// Delete removes the document and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete from redis: %w", err)
	}
	return nil
}

// List prunes expired index entries and returns the remaining IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if _, err := s.Cleanup(ctx); err != nil {
		return nil, err
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// Cleanup removes every document whose expiry lies in the past.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	expired, err := s.client.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{Min: "-inf", Max: "(" + now}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan expired sessions: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	for _, id := range expired {
		pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.indexKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("prune expired sessions: %w", err)
	}
	return len(expired), nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ store.Store = (*Store)(nil)
