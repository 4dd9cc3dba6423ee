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

type BookingRepository struct {
	coll collection[models.Booking]
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{coll: collection[models.Booking]{c: db.Collection(database.Bookings)}}
}

// Create inserts b. A second booking with the same calendlyEventId fails
// with ErrDuplicate.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	id, err := r.coll.insert(ctx, b)
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	return r.coll.byID(ctx, id)
}

// FindByClient returns the client's bookings, most recent session first.
func (r *BookingRepository) FindByClient(ctx context.Context, clientID primitive.ObjectID) ([]models.Booking, error) {
	return r.coll.find(ctx, bson.M{"client": clientID},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
}

func (r *BookingRepository) FindByCalendlyEventID(ctx context.Context, eventID string) (*models.Booking, error) {
	return r.coll.findOne(ctx, bson.M{"calendlyEventId": eventID})
}

func (r *BookingRepository) List(ctx context.Context, q query.Query) ([]models.Booking, int64, error) {
	return r.coll.list(ctx, q)
}

func (r *BookingRepository) Update(ctx context.Context, b *models.Booking) error {
	return r.coll.replace(ctx, b.ID, b)
}
