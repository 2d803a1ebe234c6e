package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultDatabase is used when no database name is configured.
	DefaultDatabase = "siteplan"

	runsCollection = "runs"
)

// MongoStore keeps runs in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// NewMongoStore connects to uri, pings the primary and ensures the indexes
// used by List exist.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{client: client, runs: client.Database(database).Collection(runsCollection)}
	_, err = s.runs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "instance", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) Record(ctx context.Context, run *Run) error {
	if _, err := s.runs.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	return &run, nil
}

func (s *MongoStore) List(ctx context.Context, f Filter) ([]*Run, error) {
	query := bson.M{}
	if f.Instance != "" {
		query["instance"] = f.Instance
	}
	if f.Kind != "" {
		query["kind"] = f.Kind
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(f.limit()))

	cur, err := s.runs.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find runs: %w", err)
	}
	var runs []*Run
	if err := cur.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}
	return runs, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
