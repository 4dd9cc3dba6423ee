package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/pkg/database"
	"github.com/shashiranjanraj/studio/pkg/query"
)

type ImageRepository struct {
	coll collection[models.Image]
}

func NewImageRepository(db *mongo.Database) *ImageRepository {
	return &ImageRepository{coll: collection[models.Image]{c: db.Collection(database.Images)}}
}

func (r *ImageRepository) Create(ctx context.Context, img *models.Image) error {
	id, err := r.coll.insert(ctx, img)
	if err != nil {
		return err
	}
	img.ID = id
	return nil
}

func (r *ImageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Image, error) {
	return r.coll.byID(ctx, id)
}

func (r *ImageRepository) List(ctx context.Context, q query.Query) ([]models.Image, int64, error) {
	return r.coll.list(ctx, q)
}

func (r *ImageRepository) Update(ctx context.Context, img *models.Image) error {
	return r.coll.replace(ctx, img.ID, img)
}

func (r *ImageRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.coll.delete(ctx, id)
}
