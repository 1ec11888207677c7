package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CartTTL is how long an untouched saved cart survives.
const CartTTL = 90 * 24 * time.Hour

type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Open dials MongoDB, verifies the connection and makes sure the carts
// collection is indexed.
func Open(ctx context.Context, uri, database string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetAppName("cartd").
		SetConnectTimeout(10*time.Second).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	repo := NewMongoRepository(client.Database(database))
	if err := repo.CreateIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return repo, nil
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		client:     db.Client(),
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Disconnect(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoRepository) GetCart(ctx context.Context, owner string) (*domain.RemoteCartRecord, error) {
	var record domain.RemoteCartRecord
	err := m.collection.FindOne(ctx, bson.M{"owner": owner}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &record, nil
}

func (m *MongoRepository) UpsertCart(ctx context.Context, owner string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	now := time.Now().UTC()

	filter := bson.M{"owner": owner}
	update := bson.M{
		"$set": bson.M{
			"lines":      lines,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"owner":      owner,
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

// DeleteCart removes the owner's cart. Deleting a missing cart is not an error.
func (m *MongoRepository) DeleteCart(ctx context.Context, owner string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"owner": owner}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(CartTTL.Seconds())),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
