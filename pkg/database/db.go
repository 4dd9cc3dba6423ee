package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/studio/pkg/logger"
)

// Collection names.
const (
	Users    = "users"
	Images   = "images"
	Products = "products"
	Orders   = "orders"
	Bookings = "bookings"
)

// Mongo owns the client and the application database handle.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect opens the connection, verifies it with a ping and configures the
// pool. Returns an error instead of exiting so the caller can shut down
// gracefully.
func Connect(ctx context.Context, uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(2 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	logger.Info("database: connected", "database", dbName)
	return &Mongo{Client: client, DB: client.Database(dbName)}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// indexes is the index set every deployment needs. Text indexes back the
// ?search= parameter of the list endpoints.
var indexes = map[string][]mongo.IndexModel{
	Users: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true)},
	},
	Images: {
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}, {Key: "tags", Value: "text"}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "uploadedBy", Value: 1}}},
	},
	Products: {
		{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}},
	},
	Orders: {
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "paymentInfo.transactionId", Value: 1}}, Options: options.Index().SetSparse(true)},
	},
	Bookings: {
		{Keys: bson.D{{Key: "client", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "calendlyEventId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	},
}

// EnsureIndexes creates missing indexes. Existing ones are left untouched.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	for coll, models := range indexes {
		if _, err := m.DB.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("database: indexes on %s: %w", coll, err)
		}
	}
	return nil
}
