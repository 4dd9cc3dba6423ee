// Package services holds the business workflows. Services depend on the
// narrow store and integration interfaces below; the MongoDB repositories
// and the in-memory stores both satisfy them.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/app/repositories"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/payment"
	"github.com/shashiranjanraj/studio/pkg/query"
	"github.com/shashiranjanraj/studio/pkg/validate"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetToken(ctx context.Context, digest string, now time.Time) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

type ImageStore interface {
	Create(ctx context.Context, img *models.Image) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Image, error)
	List(ctx context.Context, q query.Query) ([]models.Image, int64, error)
	Update(ctx context.Context, img *models.Image) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, q query.Query) ([]models.Product, int64, error)
	Update(ctx context.Context, p *models.Product) error
	SetStock(ctx context.Context, id primitive.ObjectID, stock int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (*models.Product, error)
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	FindByTransactionID(ctx context.Context, txID string) (*models.Order, error)
	List(ctx context.Context, q query.Query) ([]models.Order, int64, error)
	Update(ctx context.Context, o *models.Order) error
	// SetStatus changes the status only while it still equals from and
	// returns the updated order, or ErrStale when it no longer does.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to string, deliveredAt *time.Time) (*models.Order, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *models.Booking) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	FindByClient(ctx context.Context, clientID primitive.ObjectID) ([]models.Booking, error)
	FindByCalendlyEventID(ctx context.Context, eventID string) (*models.Booking, error)
	List(ctx context.Context, q query.Query) ([]models.Booking, int64, error)
	Update(ctx context.Context, b *models.Booking) error
}

// Gateway is the payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error)
	ParseWebhook(payload []byte, signature string) (*payment.Event, error)
}

// Calendar is the external scheduling service.
type Calendar interface {
	CancelEvent(ctx context.Context, eventID, reason string) error
}

// Stores groups every store the services need.
type Stores struct {
	Users    UserStore
	Images   ImageStore
	Products ProductStore
	Orders   OrderStore
	Bookings BookingStore
}

// objectID parses a path id. Malformed ids are reported as missing
// documents, the same as ids that parse but match nothing.
func objectID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("%s not found with id of %s", what, hex)
	}
	return id, nil
}

// notFound maps repositories.ErrNotFound to a NotFound error and passes any
// other error through.
func notFound(err error, what, id string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("%s not found with id of %s", what, id)
	}
	return err
}

func check(v interface{}) error {
	if errs := validate.Struct(v); validate.HasErrors(errs) {
		return apperr.Invalid(errs)
	}
	return nil
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items      []T
	Pagination query.Pagination
}
