package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/app/repositories"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/auth"
	"github.com/shashiranjanraj/studio/pkg/besteffort"
	"github.com/shashiranjanraj/studio/pkg/calendly"
	"github.com/shashiranjanraj/studio/pkg/event"
	"github.com/shashiranjanraj/studio/pkg/logger"
	"github.com/shashiranjanraj/studio/pkg/metrics"
	"github.com/shashiranjanraj/studio/pkg/query"
)

var bookingSchema = query.Schema{
	Fields: map[string]query.FieldType{
		"status":       query.String,
		"sessionType":  query.String,
		"client":       query.ID,
		"photographer": query.ID,
		"location":     query.String,
	},
	DefaultSort: "-createdAt",
}

// bookingTransitions lists status moves an admin may make through an
// update; cancellation has its own operation.
var bookingTransitions = map[string][]string{
	models.BookingPending:   {models.BookingConfirmed},
	models.BookingConfirmed: {models.BookingCompleted},
}

type BookingService struct {
	bookings      BookingStore
	users         UserStore
	calendar      Calendar
	bus           *event.Bus
	webhookSecret string
	now           func() time.Time
}

func NewBookingService(bookings BookingStore, users UserStore, calendar Calendar, bus *event.Bus, webhookSecret string) *BookingService {
	return &BookingService{
		bookings:      bookings,
		users:         users,
		calendar:      calendar,
		bus:           bus,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

type TimeSlotInput struct {
	Start string `json:"start" validate:"required,clock"`
	End   string `json:"end"   validate:"required,clock"`
}

type BookingPaymentInput struct {
	Amount  *float64 `json:"amount"  validate:"required,gte=0"`
	Deposit float64  `json:"deposit" validate:"gte=0"`
	IsPaid  bool     `json:"isPaid"`
	Method  string   `json:"method"`
}

type BookingInput struct {
	SessionType     string               `json:"sessionType"     validate:"required,in=portrait|wedding|family|event|commercial|other"`
	Date            string               `json:"date"            validate:"required"`
	TimeSlot        *TimeSlotInput       `json:"timeSlot"        validate:"required"`
	Location        string               `json:"location"        validate:"required"`
	Notes           string               `json:"notes"           validate:"max=1000"`
	Payment         *BookingPaymentInput `json:"payment"         validate:"required"`
	CalendlyEventID string               `json:"calendlyEventId"`
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.Invalid(map[string]string{"date": "The date must be a valid date."})
	}
	return t, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, clientID string, in BookingInput) (*models.Booking, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	cid, err := objectID(clientID, "User")
	if err != nil {
		return nil, err
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		Client:      cid,
		SessionType: in.SessionType,
		Date:        date,
		TimeSlot:    models.TimeSlot{Start: in.TimeSlot.Start, End: in.TimeSlot.End},
		Location:    strings.TrimSpace(in.Location),
		Notes:       in.Notes,
		Payment: models.BookingPayment{
			Amount:  *in.Payment.Amount,
			Deposit: in.Payment.Deposit,
			IsPaid:  in.Payment.IsPaid,
			Method:  in.Payment.Method,
		},
		Status:          models.BookingPending,
		CalendlyEventID: in.CalendlyEventID,
		CreatedAt:       s.now(),
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Conflict("A booking for this calendar event already exists")
		}
		return nil, err
	}
	s.bus.FireAsync(ctx, event.BookingCreated, b)
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string, requester auth.Identity) (*models.Booking, error) {
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.Owns(b.Client.Hex()) {
		return nil, apperr.Forbidden("Not authorized to access this booking")
	}
	return b, nil
}

func (s *BookingService) MyBookings(ctx context.Context, clientID string) ([]models.Booking, error) {
	cid, err := objectID(clientID, "User")
	if err != nil {
		return nil, err
	}
	return s.bookings.FindByClient(ctx, cid)
}

func (s *BookingService) ListBookings(ctx context.Context, values url.Values) (*Page[models.Booking], error) {
	q, err := query.Parse(values, bookingSchema)
	if err != nil {
		return nil, err
	}
	docs, total, err := s.bookings.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Page[models.Booking]{Items: docs, Pagination: query.NewPagination(q, total)}, nil
}

// BookingUpdate holds the editable fields; nil means keep.
type BookingUpdate struct {
	SessionType *string              `json:"sessionType" validate:"nullable,in=portrait|wedding|family|event|commercial|other"`
	Date        *string              `json:"date"`
	TimeSlot    *TimeSlotInput       `json:"timeSlot"`
	Location    *string              `json:"location"`
	Notes       *string              `json:"notes"       validate:"nullable,max=1000"`
	Payment     *BookingPaymentInput `json:"payment"`
	Status      *string              `json:"status"      validate:"nullable,in=pending|confirmed|completed|cancelled"`
}

// UpdateBooking merges fields into a booking. Clients may edit their own
// bookings only while pending; admins may edit any booking that is not
// cancelled and move its status forward.
func (s *BookingService) UpdateBooking(ctx context.Context, id string, requester auth.Identity, in BookingUpdate) (*models.Booking, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.Owns(b.Client.Hex()) {
		return nil, apperr.Forbidden("Not authorized to update this booking")
	}
	if b.Status == models.BookingCancelled {
		return nil, apperr.Forbidden("Cannot update a booking that is cancelled")
	}
	if !requester.IsAdmin() {
		if b.Status != models.BookingPending {
			return nil, apperr.Forbidden("Cannot update a booking that is %s", b.Status)
		}
		if in.Status != nil {
			return nil, apperr.Forbidden("Only an admin can change the booking status")
		}
	}

	if in.SessionType != nil {
		b.SessionType = *in.SessionType
	}
	if in.Date != nil {
		if b.Date, err = parseDate(*in.Date); err != nil {
			return nil, err
		}
	}
	if in.TimeSlot != nil {
		b.TimeSlot = models.TimeSlot{Start: in.TimeSlot.Start, End: in.TimeSlot.End}
	}
	if in.Location != nil && strings.TrimSpace(*in.Location) != "" {
		b.Location = strings.TrimSpace(*in.Location)
	}
	if in.Notes != nil {
		b.Notes = *in.Notes
	}
	if in.Payment != nil {
		b.Payment.Amount = *in.Payment.Amount
		b.Payment.Deposit = in.Payment.Deposit
		b.Payment.IsPaid = in.Payment.IsPaid
		if in.Payment.Method != "" {
			b.Payment.Method = in.Payment.Method
		}
	}
	if in.Status != nil && *in.Status != b.Status {
		if *in.Status == models.BookingCancelled {
			return nil, apperr.Validation("Use the cancel endpoint to cancel a booking")
		}
		if !allowed(bookingTransitions, b.Status, *in.Status) {
			return nil, apperr.Validation("Cannot change booking status from %s to %s", b.Status, *in.Status)
		}
		b.Status = *in.Status
	}

	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, notFound(err, "Booking", id)
	}
	return b, nil
}

// UpdateStatus is the admin shortcut for moving a booking's status.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, requester auth.Identity, status string) (*models.Booking, error) {
	return s.UpdateBooking(ctx, id, requester, BookingUpdate{Status: &status})
}

// CancelBooking cancels a booking and, best-effort, the matching event on
// the scheduling service. A cancelled booking cannot be cancelled again.
func (s *BookingService) CancelBooking(ctx context.Context, id string, requester auth.Identity, reason string) (*models.Booking, error) {
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.Owns(b.Client.Hex()) {
		return nil, apperr.Forbidden("Not authorized to cancel this booking")
	}
	switch b.Status {
	case models.BookingCompleted:
		return nil, apperr.Validation("Cannot cancel a completed booking")
	case models.BookingCancelled:
		return nil, apperr.Validation("Booking is already cancelled")
	}

	now := s.now()
	b.Status = models.BookingCancelled
	b.CancellationReason = strings.TrimSpace(reason)
	b.CancelledAt = &now
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, notFound(err, "Booking", id)
	}

	if b.CalendlyEventID != "" && s.calendar != nil {
		reason := b.CancellationReason
		if reason == "" {
			reason = "Cancelled by " + requester.Role
		}
		besteffort.Run(ctx, "calendly.cancel", func(ctx context.Context) error {
			return s.calendar.CancelEvent(ctx, b.CalendlyEventID, reason)
		}, "booking_id", id, "event_id", b.CalendlyEventID)
	}
	s.bus.FireAsync(ctx, event.BookingCancelled, b)
	return b, nil
}

// AssignPhotographer sets the photographer of a booking. The target must be
// an existing user with the photographer capability.
func (s *BookingService) AssignPhotographer(ctx context.Context, id, photographerID string) (*models.Booking, error) {
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	pid, err := objectID(photographerID, "Photographer")
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, pid)
	if err != nil {
		return nil, notFound(err, "Photographer", photographerID)
	}
	if !u.IsPhotographer {
		return nil, apperr.NotFound("Photographer not found with id of %s", photographerID)
	}

	b.Photographer = &pid
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, notFound(err, "Booking", id)
	}
	return b, nil
}

// HandleCalendarWebhook applies an invitee event from the scheduling
// service. When a webhook secret is configured the signature header is
// required.
func (s *BookingService) HandleCalendarWebhook(ctx context.Context, body []byte, signature string) error {
	log := logger.WithCtx(ctx)
	if s.webhookSecret != "" {
		if err := calendly.VerifySignature(body, signature, s.webhookSecret, calendly.DefaultTolerance, s.now()); err != nil {
			return apperr.Validation("Webhook Error: invalid signature")
		}
	} else {
		log.Warn("calendly webhook accepted without signature verification")
	}

	ev, err := calendly.ParseWebhook(body)
	if err != nil {
		return apperr.Validation("Webhook Error: %s", err.Error())
	}
	metrics.Webhook("calendly", ev.Type)
	log = log.With("event_type", ev.Type, "event_id", ev.EventID)

	switch ev.Type {
	case calendly.EventInviteeCreated:
		return s.inviteeCreated(ctx, ev)
	case calendly.EventInviteeCanceled:
		return s.inviteeCanceled(ctx, ev)
	}
	log.Debug("calendly webhook ignored")
	return nil
}

func (s *BookingService) inviteeCreated(ctx context.Context, ev *calendly.Event) error {
	log := logger.WithCtx(ctx).With("event_id", ev.EventID)
	if ev.EventID == "" {
		log.Warn("calendly invitee.created without event id")
		return nil
	}

	u, err := s.users.FindByEmail(ctx, ev.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Warn("calendly invitee has no account", "email", ev.Email)
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.bookings.FindByCalendlyEventID(ctx, ev.EventID); err == nil {
		log.Info("calendly event already booked")
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	location := ev.Location
	if location == "" {
		location = "TBD"
	}
	b := &models.Booking{
		Client:          u.ID,
		SessionType:     sessionTypeFor(ev.EventName),
		Date:            ev.Start,
		TimeSlot:        models.TimeSlot{Start: ev.Start.Format("15:04"), End: ev.End.Format("15:04")},
		Location:        location,
		Notes:           "Booked via Calendly",
		Status:          models.BookingPending,
		CalendlyEventID: ev.EventID,
		CreatedAt:       s.now(),
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil
		}
		return err
	}
	log.Info("booking created from calendly", "booking_id", b.ID.Hex())
	s.bus.FireAsync(ctx, event.BookingCreated, b)
	return nil
}

func (s *BookingService) inviteeCanceled(ctx context.Context, ev *calendly.Event) error {
	log := logger.WithCtx(ctx).With("event_id", ev.EventID)
	b, err := s.bookings.FindByCalendlyEventID(ctx, ev.EventID)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Warn("calendly cancellation for unknown booking")
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status == models.BookingCancelled || b.Status == models.BookingCompleted {
		return nil
	}

	now := s.now()
	b.Status = models.BookingCancelled
	b.CancellationReason = "Cancelled via Calendly"
	b.CancelledAt = &now
	if err := s.bookings.Update(ctx, b); err != nil {
		return err
	}
	s.bus.FireAsync(ctx, event.BookingCancelled, b)
	return nil
}

// sessionTypeFor picks the first session type named in a calendar event
// title, e.g. "Wedding consultation" -> wedding.
func sessionTypeFor(eventName string) string {
	name := strings.ToLower(eventName)
	for _, t := range models.SessionTypes {
		if t != "other" && strings.Contains(name, t) {
			return t
		}
	}
	return "other"
}

func (s *BookingService) find(ctx context.Context, id string) (*models.Booking, error) {
	oid, err := objectID(id, "Booking")
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.FindByID(ctx, oid)
	if err != nil {
		return nil, notFound(err, "Booking", id)
	}
	return b, nil
}
