// Package repositories holds the MongoDB stores, one per collection. Every
// store reports a missing document as ErrNotFound and a unique index
// violation as ErrDuplicate.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/studio/pkg/query"
)

var (
	ErrNotFound          = errors.New("repositories: document not found")
	ErrDuplicate         = errors.New("repositories: duplicate key")
	ErrInsufficientStock = errors.New("repositories: insufficient stock")
	// ErrStale reports a conditional update whose precondition no longer holds.
	ErrStale = errors.New("repositories: document changed concurrently")
)

// collection is the typed CRUD core shared by the stores.
type collection[T any] struct {
	c *mongo.Collection
}

func (c collection[T]) insert(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	res, err := c.c.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, translate(err)
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

func (c collection[T]) findOne(ctx context.Context, filter interface{}) (*T, error) {
	var out T
	if err := c.c.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (c collection[T]) byID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

func (c collection[T]) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := c.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// list runs a parsed list query and returns one page plus the total match
// count.
func (c collection[T]) list(ctx context.Context, q query.Query) ([]T, int64, error) {
	filter := q.Filter
	if filter == nil {
		filter = bson.M{}
	}

	total, err := c.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	opts := options.Find().SetSkip(q.Skip()).SetLimit(int64(q.Limit))
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	docs, err := c.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (c collection[T]) replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	res, err := c.c.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c collection[T]) delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
