package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImageCategories are the accepted portfolio categories.
var ImageCategories = []string{"portrait", "wedding", "nature", "event", "other"}

type Dimensions struct {
	Width  int `bson:"width"  json:"width"`
	Height int `bson:"height" json:"height"`
}

// ImageMetadata describes the original upload.
type ImageMetadata struct {
	Width  int    `bson:"width"  json:"width"`
	Height int    `bson:"height" json:"height"`
	Format string `bson:"format" json:"format"`
	Size   int64  `bson:"size"   json:"size"`
}

// Image is a portfolio entry. StorageKey and ThumbnailKey are object keys on
// the disk named by StorageDisk.
type Image struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"   json:"_id"`
	Title        string             `bson:"title"           json:"title"`
	Description  string             `bson:"description"     json:"description,omitempty"`
	Category     string             `bson:"category"        json:"category"`
	Tags         []string           `bson:"tags"            json:"tags"`
	ImageURL     string             `bson:"imageUrl"        json:"imageUrl"`
	ThumbnailURL string             `bson:"thumbnailUrl"    json:"thumbnailUrl"`
	StorageKey   string             `bson:"storageKey"      json:"storageKey"`
	ThumbnailKey string             `bson:"thumbnailKey"    json:"thumbnailKey"`
	StorageDisk  string             `bson:"storageDisk"     json:"storageDisk"`
	Dimensions   Dimensions         `bson:"dimensions"      json:"dimensions"`
	Metadata     ImageMetadata      `bson:"metadata"        json:"metadata"`
	UploadedBy   primitive.ObjectID `bson:"uploadedBy"      json:"uploadedBy"`
	Featured     bool               `bson:"featured"        json:"featured"`
	InPortfolio  bool               `bson:"inPortfolio"     json:"inPortfolio"`
	IsForSale    bool               `bson:"isForSale"       json:"isForSale"`
	Price        *float64           `bson:"price,omitempty" json:"price,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"       json:"createdAt"`
}
