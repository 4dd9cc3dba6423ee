package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order status.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// Payment status.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// OrderItem snapshots name and price at order time.
type OrderItem struct {
	Product  primitive.ObjectID `bson:"product"  json:"product"`
	Name     string             `bson:"name"     json:"name"`
	Price    float64            `bson:"price"    json:"price"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

type PaymentInfo struct {
	Type          string `bson:"type"                    json:"type"`
	TransactionID string `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	Status        string `bson:"status"                  json:"status"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"         json:"_id"`
	User            primitive.ObjectID `bson:"user"                  json:"user"`
	Items           []OrderItem        `bson:"items"                 json:"items"`
	ShippingAddress Address            `bson:"shippingAddress"       json:"shippingAddress"`
	Subtotal        float64            `bson:"subtotal"              json:"subtotal"`
	Tax             float64            `bson:"tax"                   json:"tax"`
	Shipping        float64            `bson:"shipping"              json:"shipping"`
	Total           float64            `bson:"total"                 json:"total"`
	PaymentInfo     PaymentInfo        `bson:"paymentInfo"           json:"paymentInfo"`
	Status          string             `bson:"status"                json:"status"`
	PaidAt          *time.Time         `bson:"paidAt,omitempty"      json:"paidAt,omitempty"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"             json:"createdAt"`
}
