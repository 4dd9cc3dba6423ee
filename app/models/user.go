package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Address is shared by users and order shipping details.
type Address struct {
	Street     string `bson:"street,omitempty"     json:"street,omitempty"`
	City       string `bson:"city,omitempty"       json:"city,omitempty"`
	State      string `bson:"state,omitempty"      json:"state,omitempty"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
	Country    string `bson:"country,omitempty"    json:"country,omitempty"`
}

// User is an account. Password and reset fields are never serialised to JSON.
type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"                 json:"_id"`
	Name                string             `bson:"name"                          json:"name"`
	Email               string             `bson:"email"                         json:"email"`
	Password            string             `bson:"password"                      json:"-"`
	Role                string             `bson:"role"                          json:"role"`
	IsPhotographer      bool               `bson:"isPhotographer"                json:"isPhotographer"`
	Phone               string             `bson:"phone,omitempty"               json:"phone,omitempty"`
	Address             *Address           `bson:"address,omitempty"             json:"address,omitempty"`
	ResetPasswordToken  string             `bson:"resetPasswordToken,omitempty"  json:"-"`
	ResetPasswordExpire *time.Time         `bson:"resetPasswordExpire,omitempty" json:"-"`
	CreatedAt           time.Time          `bson:"createdAt"                     json:"createdAt"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
