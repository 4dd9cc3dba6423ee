package memory

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/app/repositories"
	"github.com/shashiranjanraj/studio/pkg/query"
)

// ── Users ────────────────────────────────────────────────────────────────────

type UserStore struct{ t *table[models.User] }

func NewUserStore() *UserStore {
	return &UserStore{t: newTable(
		func(u *models.User) primitive.ObjectID { return u.ID },
		func(u *models.User, id primitive.ObjectID) { u.ID = id },
	)}
}

func (s *UserStore) Create(_ context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	if _, err := s.t.findOne(bson.M{"email": u.Email}); err == nil {
		return repositories.ErrDuplicate
	}
	return s.t.insert(u)
}

func (s *UserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.t.get(id)
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.t.findOne(bson.M{"email": strings.ToLower(email)})
}

func (s *UserStore) FindByResetToken(_ context.Context, digest string, now time.Time) (*models.User, error) {
	return s.t.findOne(bson.M{
		"resetPasswordToken":  digest,
		"resetPasswordExpire": bson.M{"$gt": now},
	})
}

func (s *UserStore) Update(_ context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	if other, err := s.t.findOne(bson.M{"email": u.Email}); err == nil && other.ID != u.ID {
		return repositories.ErrDuplicate
	}
	return s.t.replace(u)
}

// ── Images ───────────────────────────────────────────────────────────────────

type ImageStore struct{ t *table[models.Image] }

func NewImageStore() *ImageStore {
	return &ImageStore{t: newTable(
		func(i *models.Image) primitive.ObjectID { return i.ID },
		func(i *models.Image, id primitive.ObjectID) { i.ID = id },
		"title", "description", "tags",
	)}
}

func (s *ImageStore) Create(_ context.Context, img *models.Image) error { return s.t.insert(img) }

func (s *ImageStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Image, error) {
	return s.t.get(id)
}

func (s *ImageStore) List(ctx context.Context, q query.Query) ([]models.Image, int64, error) {
	return s.t.list(ctx, q)
}

func (s *ImageStore) Update(_ context.Context, img *models.Image) error { return s.t.replace(img) }

func (s *ImageStore) Delete(_ context.Context, id primitive.ObjectID) error { return s.t.delete(id) }

// ── Products ─────────────────────────────────────────────────────────────────

type ProductStore struct{ t *table[models.Product] }

func NewProductStore() *ProductStore {
	return &ProductStore{t: newTable(
		func(p *models.Product) primitive.ObjectID { return p.ID },
		func(p *models.Product, id primitive.ObjectID) { p.ID = id },
		"name", "description",
	)}
}

func (s *ProductStore) Create(_ context.Context, p *models.Product) error { return s.t.insert(p) }

func (s *ProductStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.t.get(id)
}

func (s *ProductStore) List(ctx context.Context, q query.Query) ([]models.Product, int64, error) {
	return s.t.list(ctx, q)
}

// Update writes every field except stock.
func (s *ProductStore) Update(_ context.Context, p *models.Product) error {
	_, err := s.t.modify(p.ID, func(cur *models.Product) error {
		stock, created := cur.Stock, cur.CreatedAt
		*cur = *p
		cur.Stock, cur.CreatedAt = stock, created
		return nil
	})
	return err
}

func (s *ProductStore) SetStock(_ context.Context, id primitive.ObjectID, stock int) error {
	_, err := s.t.modify(id, func(cur *models.Product) error {
		cur.Stock = stock
		return nil
	})
	return err
}

func (s *ProductStore) Delete(_ context.Context, id primitive.ObjectID) error { return s.t.delete(id) }

func (s *ProductStore) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) (*models.Product, error) {
	return s.t.modify(id, func(cur *models.Product) error {
		if cur.Stock < qty {
			return repositories.ErrInsufficientStock
		}
		cur.Stock -= qty
		return nil
	})
}

func (s *ProductStore) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	_, err := s.t.modify(id, func(cur *models.Product) error {
		cur.Stock += qty
		return nil
	})
	return err
}

// ── Orders ───────────────────────────────────────────────────────────────────

type OrderStore struct{ t *table[models.Order] }

func NewOrderStore() *OrderStore {
	return &OrderStore{t: newTable(
		func(o *models.Order) primitive.ObjectID { return o.ID },
		func(o *models.Order, id primitive.ObjectID) { o.ID = id },
	)}
}

func (s *OrderStore) Create(_ context.Context, o *models.Order) error { return s.t.insert(o) }

func (s *OrderStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.t.get(id)
}

func (s *OrderStore) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.t.find(bson.M{"user": userID}, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *OrderStore) FindByTransactionID(_ context.Context, txID string) (*models.Order, error) {
	return s.t.findOne(bson.M{"paymentInfo.transactionId": txID})
}

func (s *OrderStore) List(ctx context.Context, q query.Query) ([]models.Order, int64, error) {
	return s.t.list(ctx, q)
}

func (s *OrderStore) Update(_ context.Context, o *models.Order) error { return s.t.replace(o) }

func (s *OrderStore) SetStatus(_ context.Context, id primitive.ObjectID, from, to string, deliveredAt *time.Time) (*models.Order, error) {
	return s.t.modify(id, func(cur *models.Order) error {
		if cur.Status != from {
			return repositories.ErrStale
		}
		cur.Status = to
		if deliveredAt != nil {
			at := *deliveredAt
			cur.DeliveredAt = &at
		}
		return nil
	})
}

// ── Bookings ─────────────────────────────────────────────────────────────────

type BookingStore struct{ t *table[models.Booking] }

func NewBookingStore() *BookingStore {
	return &BookingStore{t: newTable(
		func(b *models.Booking) primitive.ObjectID { return b.ID },
		func(b *models.Booking, id primitive.ObjectID) { b.ID = id },
	)}
}

func (s *BookingStore) Create(_ context.Context, b *models.Booking) error {
	if b.CalendlyEventID != "" {
		if _, err := s.t.findOne(bson.M{"calendlyEventId": b.CalendlyEventID}); err == nil {
			return repositories.ErrDuplicate
		}
	}
	return s.t.insert(b)
}

func (s *BookingStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	return s.t.get(id)
}

func (s *BookingStore) FindByClient(_ context.Context, clientID primitive.ObjectID) ([]models.Booking, error) {
	return s.t.find(bson.M{"client": clientID}, bson.D{{Key: "date", Value: -1}})
}

func (s *BookingStore) FindByCalendlyEventID(_ context.Context, eventID string) (*models.Booking, error) {
	return s.t.findOne(bson.M{"calendlyEventId": eventID})
}

func (s *BookingStore) List(ctx context.Context, q query.Query) ([]models.Booking, int64, error) {
	return s.t.list(ctx, q)
}

func (s *BookingStore) Update(_ context.Context, b *models.Booking) error { return s.t.replace(b) }
