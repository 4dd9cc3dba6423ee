package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductCategories are the accepted shop categories.
var ProductCategories = []string{"print", "canvas", "frame", "album", "digital", "other"}

// Product is a sellable item. Stock is only changed through the store's
// conditional increment and decrement.
type Product struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"   json:"_id"`
	Name        string              `bson:"name"            json:"name"`
	Description string              `bson:"description"     json:"description,omitempty"`
	Price       float64             `bson:"price"           json:"price"`
	Stock       int                 `bson:"stock"           json:"stock"`
	Category    string              `bson:"category"        json:"category"`
	ImageURL    string              `bson:"imageUrl"        json:"imageUrl,omitempty"`
	Image       *primitive.ObjectID `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt"       json:"createdAt"`
}
