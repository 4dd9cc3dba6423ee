package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/pkg/database"
	"github.com/shashiranjanraj/studio/pkg/query"
)

type ProductRepository struct {
	coll collection[models.Product]
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: collection[models.Product]{c: db.Collection(database.Products)}}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	id, err := r.coll.insert(ctx, p)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return r.coll.byID(ctx, id)
}

func (r *ProductRepository) List(ctx context.Context, q query.Query) ([]models.Product, int64, error) {
	return r.coll.list(ctx, q)
}

// Update replaces the document except for stock, which only moves through
// DecrementStock and IncrementStock.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	res, err := r.coll.c.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"category":    p.Category,
		"imageUrl":    p.ImageURL,
		"image":       p.Image,
	}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStock overwrites the stock level (admin edits).
func (r *ProductRepository) SetStock(ctx context.Context, id primitive.ObjectID, stock int) error {
	res, err := r.coll.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"stock": stock}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.coll.delete(ctx, id)
}

// DecrementStock removes qty units only if at least qty are in stock; the
// check and the write are one atomic operation. It returns the product after
// the decrement.
func (r *ProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (*models.Product, error) {
	var out models.Product
	err := r.coll.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return &out, nil
	}
	if translate(err) != ErrNotFound {
		return nil, err
	}
	if _, err := r.coll.byID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrInsufficientStock
}

// IncrementStock returns qty units to stock.
func (r *ProductRepository) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.coll.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"stock": qty}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
