package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/pkg/database"
	"github.com/shashiranjanraj/studio/pkg/query"
)

type OrderRepository struct {
	coll collection[models.Order]
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: collection[models.Order]{c: db.Collection(database.Orders)}}
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	id, err := r.coll.insert(ctx, o)
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.coll.byID(ctx, id)
}

// FindByUser returns the user's orders, newest first.
func (r *OrderRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.coll.find(ctx, bson.M{"user": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// FindByTransactionID finds the order paid by a payment intent.
func (r *OrderRepository) FindByTransactionID(ctx context.Context, txID string) (*models.Order, error) {
	return r.coll.findOne(ctx, bson.M{"paymentInfo.transactionId": txID})
}

func (r *OrderRepository) List(ctx context.Context, q query.Query) ([]models.Order, int64, error) {
	return r.coll.list(ctx, q)
}

func (r *OrderRepository) Update(ctx context.Context, o *models.Order) error {
	return r.coll.replace(ctx, o.ID, o)
}

// SetStatus is a compare-and-set on status. A miss on an existing id means
// another writer moved the order first.
func (r *OrderRepository) SetStatus(ctx context.Context, id primitive.ObjectID, from, to string, deliveredAt *time.Time) (*models.Order, error) {
	set := bson.M{"status": to}
	if deliveredAt != nil {
		set["deliveredAt"] = *deliveredAt
	}
	var out models.Order
	err := r.coll.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, ferr := r.coll.byID(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
