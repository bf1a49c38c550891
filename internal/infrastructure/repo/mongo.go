package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo dials the document database with conservative pool and
// selection timeouts and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(database), nil
}

// Mongo bundles the per-collection repositories backed by one database.
type Mongo struct {
	Orders     *MongoOrderRepo
	Users      *MongoUserRepo
	Products   *MongoProductRepo
	Categories *MongoCategoryRepo
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		Orders:     &MongoOrderRepo{c: db.Collection("orders")},
		Users:      &MongoUserRepo{c: db.Collection("users")},
		Products:   &MongoProductRepo{c: db.Collection("products")},
		Categories: &MongoCategoryRepo{c: db.Collection("categories")},
	}
}

func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	type target struct {
		c      *mongo.Collection
		models []mongo.IndexModel
	}
	targets := []target{
		{m.Users.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{m.Categories.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{m.Products.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
		}},
		{m.Orders.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		}},
	}
	for _, t := range targets {
		if _, err := t.c.Indexes().CreateMany(ctx, t.models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", t.c.Name(), err)
		}
	}
	return nil
}
