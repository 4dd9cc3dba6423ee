package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Booking status.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// SessionTypes are the accepted photo session kinds.
var SessionTypes = []string{"portrait", "wedding", "family", "event", "commercial", "other"}

// TimeSlot holds "HH:MM" start and end times.
type TimeSlot struct {
	Start string `bson:"start" json:"start"`
	End   string `bson:"end"   json:"end"`
}

type BookingPayment struct {
	Amount  float64 `bson:"amount"           json:"amount"`
	Deposit float64 `bson:"deposit"          json:"deposit"`
	IsPaid  bool    `bson:"isPaid"           json:"isPaid"`
	Method  string  `bson:"method,omitempty" json:"method,omitempty"`
}

// Booking is a photo session. CalendlyEventID correlates it with the
// scheduling service.
type Booking struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty"                json:"_id"`
	Client             primitive.ObjectID  `bson:"client"                       json:"client"`
	Photographer       *primitive.ObjectID `bson:"photographer,omitempty"       json:"photographer,omitempty"`
	SessionType        string              `bson:"sessionType"                  json:"sessionType"`
	Date               time.Time           `bson:"date"                         json:"date"`
	TimeSlot           TimeSlot            `bson:"timeSlot"                     json:"timeSlot"`
	Location           string              `bson:"location"                     json:"location"`
	Notes              string              `bson:"notes,omitempty"              json:"notes,omitempty"`
	Payment            BookingPayment      `bson:"payment"                      json:"payment"`
	Status             string              `bson:"status"                       json:"status"`
	CancellationReason string              `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time          `bson:"cancelledAt,omitempty"        json:"cancelledAt,omitempty"`
	CalendlyEventID    string              `bson:"calendlyEventId,omitempty"    json:"calendlyEventId,omitempty"`
	CreatedAt          time.Time           `bson:"createdAt"                    json:"createdAt"`
}
