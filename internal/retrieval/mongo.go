package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultCollection holds reference chunks.
const DefaultCollection = "reference_chunks"

// MongoConfig holds connection settings for the chunk store.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// Connect opens a MongoDB client and verifies it with a ping.
func Connect(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// MongoChunkStore keeps chunks in a MongoDB collection keyed by chunk ID.
type MongoChunkStore struct {
	collection *mongo.Collection
}

// NewMongoChunkStore creates a store over db.collection.
func NewMongoChunkStore(db *mongo.Database, collection string) *MongoChunkStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoChunkStore{collection: db.Collection(collection)}
}

// InitializeIndexes creates the secondary indexes used for maintenance queries.
func (s *MongoChunkStore) InitializeIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "source", Value: 1}, {Key: "chunk_index", Value: 1}}},
		{Keys: bson.D{{Key: "language", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create chunk indexes: %w", err)
	}
	return nil
}

// Upsert replaces or inserts each chunk by ID.
func (s *MongoChunkStore) Upsert(ctx context.Context, chunks []Chunk) error {
	for _, c := range chunks {
		_, err := s.collection.ReplaceOne(ctx,
			bson.M{"_id": c.ID},
			c,
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

// All returns every chunk that carries a vector.
func (s *MongoChunkStore) All(ctx context.Context) ([]Chunk, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"vector.0": bson.M{"$exists": true}})
	if err != nil {
		return nil, fmt.Errorf("find chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var chunks []Chunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *MongoChunkStore) Count(ctx context.Context) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// DeleteSource removes every chunk ingested from source.
func (s *MongoChunkStore) DeleteSource(ctx context.Context, source string) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"source": source})
	if err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", source, err)
	}
	return res.DeletedCount, nil
}
