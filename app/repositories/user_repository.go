package repositories

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/pkg/database"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	coll collection[models.User]
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: collection[models.User]{c: db.Collection(database.Users)}}
}

// Create persists a new user and sets its ID. Emails are stored lowercased.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	id, err := r.coll.insert(ctx, u)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.coll.byID(ctx, id)
}

// FindByEmail looks up a user by their email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.coll.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

// FindByResetToken returns the user holding an unexpired reset token digest.
func (r *UserRepository) FindByResetToken(ctx context.Context, digest string, now time.Time) (*models.User, error) {
	return r.coll.findOne(ctx, bson.M{
		"resetPasswordToken":  digest,
		"resetPasswordExpire": bson.M{"$gt": now},
	})
}

// Update persists changes to an existing user.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	return r.coll.replace(ctx, u.ID, u)
}
