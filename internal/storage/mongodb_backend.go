package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"camgate-go/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoTimeout = 5 * time.Second

// MongoDBBackend stores one document per camera in the cameras collection,
// keyed by a unique index on id.
type MongoDBBackend struct {
	uri        string
	dbName     string
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBBackend records connection settings; Initialize connects.
func NewMongoDBBackend(uri, dbName string) (*MongoDBBackend, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri cannot be empty")
	}
	if dbName == "" {
		dbName = "camgate"
	}
	return &MongoDBBackend{uri: uri, dbName: dbName}, nil
}

func (m *MongoDBBackend) Initialize(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, defaultMongoTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(m.uri)
	opts.SetMaxPoolSize(10)
	opts.SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(m.dbName).Collection("cameras")
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}},
		},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	m.client = client
	m.collection = coll
	return nil
}

func (m *MongoDBBackend) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultMongoTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoDBBackend) Health(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("mongodb storage not initialized")
	}
	ctx, cancel := withTimeout(ctx, defaultMongoTimeout)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *MongoDBBackend) FetchAll(ctx context.Context) ([]models.CameraConfig, error) {
	ctx, cancel := withTimeout(ctx, defaultMongoTimeout)
	defer cancel()
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}})
	cur, err := m.collection.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.CameraConfig{}
	for cur.Next(ctx) {
		var cfg models.CameraConfig
		if err := cur.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode camera: %w", err)
		}
		out = append(out, cfg)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoDBBackend) Insert(ctx context.Context, cfg models.CameraConfig) error {
	if err := validateForWrite(cfg); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, defaultMongoTimeout)
	defer cancel()
	if _, err := m.collection.InsertOne(ctx, cfg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &ErrAlreadyExists{Key: cfg.ID}
		}
		return fmt.Errorf("insert camera %s: %w", cfg.ID, err)
	}
	return nil
}

func (m *MongoDBBackend) Save(ctx context.Context, cfg models.CameraConfig) error {
	if err := validateForWrite(cfg); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, defaultMongoTimeout)
	defer cancel()
	res, err := m.collection.ReplaceOne(ctx, bson.M{"id": cfg.ID}, cfg)
	if err != nil {
		return fmt.Errorf("update camera %s: %w", cfg.ID, err)
	}
	if res.MatchedCount == 0 {
		return &ErrNotFound{Key: cfg.ID}
	}
	return nil
}

func (m *MongoDBBackend) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, defaultMongoTimeout)
	defer cancel()
	if _, err := m.collection.DeleteOne(ctx, bson.M{"id": id}); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("delete camera %s: %w", id, err)
	}
	return nil
}
