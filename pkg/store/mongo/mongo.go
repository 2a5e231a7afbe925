// Package mongo stores session documents in a MongoDB collection.
//
// Each session is one record keyed by its ID. The document itself is kept
// as a JSON body so graph attributes round-trip with the same types as every
// other backend. A TTL index on expiresAt lets the server evict expired
// sessions on its own; Get and Cleanup do not rely on it.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/webgraph/pkg/store"
)

// Defaults.
const (
	DefaultDatabase   = "webgraph"
	DefaultCollection = "sessions"
)

type record struct {
	ID        string     `bson:"_id"`
	Body      string     `bson:"body"`
	UpdatedAt time.Time  `bson:"updatedAt"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
}

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to uri and prepares the sessions collection of database db.
// An empty db uses DefaultDatabase.
func New(ctx context.Context, uri, db string) (*Store, error) {
	if db == "" {
		db = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, coll: client.Database(db).Collection(DefaultCollection)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create ttl index: %w", err)
	}
	return nil
}

// Set upserts the document by ID.
func (s *Store) Set(ctx context.Context, doc *store.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	rec := record{ID: doc.ID, Body: string(body), UpdatedAt: doc.UpdatedAt}
	if !doc.ExpiresAt.IsZero() {
		exp := doc.ExpiresAt
		rec.ExpiresAt = &exp
	}

	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save to mongo: %w", err)
	}
	return nil
}

// Get reads a document by ID.
func (s *Store) Get(ctx context.Context, id string) (*store.Document, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.NotFound(id)
		}
		return nil, fmt.Errorf("get from mongo: %w", err)
	}

	var doc store.Document
	if err := json.Unmarshal([]byte(rec.Body), &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.IsExpired() {
		return nil, store.NotFound(id)
	}
	return &doc, nil
}

// Delete removes the document.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete from mongo: %w", err)
	}
	return nil
}

// List returns the IDs of every live document in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if _, err := s.Cleanup(ctx); err != nil {
		return nil, err
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var recs []record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids, nil
}

// Cleanup deletes expired documents immediately instead of waiting for the
// TTL monitor.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": time.Now()}})
	if err != nil {
		return 0, fmt.Errorf("prune expired sessions: %w", err)
	}
	return int(res.DeletedCount), nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ store.Store = (*Store)(nil)
