package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/app/models"
	"github.com/shashiranjanraj/studio/app/repositories/memory"
	"github.com/shashiranjanraj/studio/pkg/apperr"
	"github.com/shashiranjanraj/studio/pkg/calendly"
)

type bookingFixture struct {
	svc      *BookingService
	bookings *memory.BookingStore
	users    *memory.UserStore
	calendar *fakeCalendar
	client   *models.User
	admin    *models.User
}

func newBookingFixture(t *testing.T, secret string) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		bookings: memory.NewBookingStore(),
		users:    memory.NewUserStore(),
		calendar: &fakeCalendar{},
	}
	f.svc = NewBookingService(f.bookings, f.users, f.calendar, nil, secret)
	f.client = seedUser(t, f.users, "client@example.com", models.RoleUser)
	f.admin = seedUser(t, f.users, "admin@example.com", models.RoleAdmin)
	return f
}

func bookingInput() BookingInput {
	return BookingInput{
		SessionType:     "portrait",
		Date:            "2026-11-20",
		TimeSlot:        &TimeSlotInput{Start: "10:00", End: "11:30"},
		Location:        " Central Park ",
		Payment:         &BookingPaymentInput{Amount: ptr(250.0), Deposit: 50},
		CalendlyEventID: "EVT1",
	}
}

func (f *bookingFixture) book(t *testing.T) *models.Booking {
	t.Helper()
	b, err := f.svc.CreateBooking(context.Background(), f.client.ID.Hex(), bookingInput())
	require.NoError(t, err)
	return b
}

func TestCreateBooking(t *testing.T) {
	f := newBookingFixture(t, "")
	b := f.book(t)

	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, "Central Park", b.Location)
	assert.Equal(t, 2026, b.Date.Year())
	assert.Equal(t, 250.0, b.Payment.Amount)
	assert.Equal(t, f.client.ID, b.Client)

	mine, err := f.svc.MyBookings(context.Background(), f.client.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newBookingFixture(t, "")

	in := bookingInput()
	in.SessionType = "birthday"
	_, err := f.svc.CreateBooking(context.Background(), f.client.ID.Hex(), in)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	in = bookingInput()
	in.TimeSlot.Start = "25:00"
	_, err = f.svc.CreateBooking(context.Background(), f.client.ID.Hex(), in)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	in = bookingInput()
	in.Date = "next tuesday"
	_, err = f.svc.CreateBooking(context.Background(), f.client.ID.Hex(), in)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	in = bookingInput()
	in.Payment = &BookingPaymentInput{Amount: ptr(0.0)}
	_, err = f.svc.CreateBooking(context.Background(), f.client.ID.Hex(), in)
	assert.NoError(t, err, "a free session is valid")
}

func TestCreateBookingDuplicateEventConflicts(t *testing.T) {
	f := newBookingFixture(t, "")
	f.book(t)

	_, err := f.svc.CreateBooking(context.Background(), f.client.ID.Hex(), bookingInput())
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCancelBookingTwiceCallsCalendarOnce(t *testing.T) {
	f := newBookingFixture(t, "")
	b := f.book(t)

	got, err := f.svc.CancelBooking(context.Background(), b.ID.Hex(), identity(f.client), "Sick")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)
	assert.Equal(t, "Sick", got.CancellationReason)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, []string{"EVT1:Sick"}, f.calendar.calls)

	_, err = f.svc.CancelBooking(context.Background(), b.ID.Hex(), identity(f.client), "again")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.EqualError(t, err, "Booking is already cancelled")
	assert.Equal(t, 1, f.calendar.count())
}

func TestCancelBookingSwallowsCalendarFailure(t *testing.T) {
	f := newBookingFixture(t, "")
	b := f.book(t)
	f.calendar.err = errors.New("calendly down")

	got, err := f.svc.CancelBooking(context.Background(), b.ID.Hex(), identity(f.client), "")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)
	assert.Equal(t, []string{"EVT1:Cancelled by user"}, f.calendar.calls)

	stored, _ := f.bookings.FindByID(context.Background(), b.ID)
	assert.Equal(t, models.BookingCancelled, stored.Status)
}

func TestCancelCompletedBookingFails(t *testing.T) {
	f := newBookingFixture(t, "")
	b := f.book(t)
	b.Status = models.BookingCompleted
	require.NoError(t, f.bookings.Update(context.Background(), b))

	_, err := f.svc.CancelBooking(context.Background(), b.ID.Hex(), identity(f.admin), "")
	assert.EqualError(t, err, "Cannot cancel a completed booking")
	assert.Zero(t, f.calendar.count())
}

func TestCancelBookingOwnership(t *testing.T) {
	f := newBookingFixture(t, "")
	b := f.book(t)
	stranger := seedUser(t, f.users, "stranger@example.com", models.RoleUser)

	_, err := f.svc.CancelBooking(context.Background(), b.ID.Hex(), identity(stranger), "")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.CancelBooking(context.Background(), "123", identity(f.client), "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.EqualError(t, err, "Booking not found with id of 123")
}

func TestUpdateBookingRules(t *testing.T) {
	f := newBookingFixture(t, "")
	b := f.book(t)
	id := b.ID.Hex()

	got, err := f.svc.UpdateBooking(context.Background(), id, identity(f.client), BookingUpdate{Notes: ptr("Bring the dog")})
	require.NoError(t, err)
	assert.Equal(t, "Bring the dog", got.Notes)

	_, err = f.svc.UpdateBooking(context.Background(), id, identity(f.client), BookingUpdate{Status: ptr(models.BookingConfirmed)})
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "clients cannot move status")

	_, err = f.svc.UpdateStatus(context.Background(), id, identity(f.admin), models.BookingConfirmed)
	require.NoError(t, err)

	_, err = f.svc.UpdateBooking(context.Background(), id, identity(f.client), BookingUpdate{Location: ptr("Beach")})
	require.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.EqualError(t, err, "Cannot update a booking that is confirmed")

	got, err = f.svc.UpdateBooking(context.Background(), id, identity(f.admin), BookingUpdate{Location: ptr("Beach")})
	require.NoError(t, err)
	assert.Equal(t, "Beach", got.Location)

	_, err = f.svc.UpdateStatus(context.Background(), id, identity(f.admin), models.BookingCancelled)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "cancellation has its own operation")

	_, err = f.svc.UpdateStatus(context.Background(), id, identity(f.admin), models.BookingPending)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	got, err = f.svc.UpdateStatus(context.Background(), id, identity(f.admin), models.BookingCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, got.Status)
}

func TestCancelledBookingIsReadOnly(t *testing.T) {
	f := newBookingFixture(t, "")
	b := f.book(t)
	id := b.ID.Hex()

	_, err := f.svc.CancelBooking(context.Background(), id, identity(f.client), "Moved away")
	require.NoError(t, err)

	for _, who := range []*models.User{f.client, f.admin} {
		_, err = f.svc.UpdateBooking(context.Background(), id, identity(who), BookingUpdate{Location: ptr("Studio B")})
		require.True(t, apperr.Is(err, apperr.KindForbidden), who.Email)
		assert.EqualError(t, err, "Cannot update a booking that is cancelled")
	}

	stored, err := f.bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Studio B", stored.Location)
}

func TestAssignPhotographer(t *testing.T) {
	f := newBookingFixture(t, "")
	b := f.book(t)
	shooter := seedUser(t, f.users, "shooter@example.com", models.RoleUser)

	_, err := f.svc.AssignPhotographer(context.Background(), b.ID.Hex(), shooter.ID.Hex())
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "not a photographer yet")

	shooter.IsPhotographer = true
	require.NoError(t, f.users.Update(context.Background(), shooter))

	got, err := f.svc.AssignPhotographer(context.Background(), b.ID.Hex(), shooter.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, got.Photographer)
	assert.Equal(t, shooter.ID, *got.Photographer)
}

func TestListBookingsFiltersByStatus(t *testing.T) {
	f := newBookingFixture(t, "")
	first := f.book(t)
	in := bookingInput()
	in.CalendlyEventID = "EVT2"
	_, err := f.svc.CreateBooking(context.Background(), f.client.ID.Hex(), in)
	require.NoError(t, err)
	_, err = f.svc.CancelBooking(context.Background(), first.ID.Hex(), identity(f.client), "")
	require.NoError(t, err)

	page, err := f.svc.ListBookings(context.Background(), map[string][]string{"status": {"pending"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "EVT2", page.Items[0].CalendlyEventID)
	assert.EqualValues(t, 1, page.Pagination.Total)
}

func calendlyBody(kind, email, eventID, name, location string) []byte {
	return []byte(fmt.Sprintf(`{
  "event": %q,
  "payload": {
    "email": %q,
    "name": "Jane",
    "scheduled_event": {
      "uri": "https://api.calendly.com/scheduled_events/%s",
      "name": %q,
      "start_time": "2026-11-02T15:00:00Z",
      "end_time": "2026-11-02T16:30:00Z",
      "location": {"type": "physical", "location": %q}
    }
  }
}`, kind, email, eventID, name, location))
}

func signature(body []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + hex.EncodeToString(calendly.Sign(body, secret, ts))
}

func TestCalendarWebhookCreatesBookingOnce(t *testing.T) {
	f := newBookingFixture(t, "")
	body := calendlyBody(calendly.EventInviteeCreated, "Client@Example.com", "CAL9", "Wedding Consultation", "")

	require.NoError(t, f.svc.HandleCalendarWebhook(context.Background(), body, ""))
	require.NoError(t, f.svc.HandleCalendarWebhook(context.Background(), body, ""))

	mine, err := f.svc.MyBookings(context.Background(), f.client.ID.Hex())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	b := mine[0]
	assert.Equal(t, "wedding", b.SessionType)
	assert.Equal(t, "TBD", b.Location)
	assert.Equal(t, "15:00", b.TimeSlot.Start)
	assert.Equal(t, "16:30", b.TimeSlot.End)
	assert.Equal(t, "Booked via Calendly", b.Notes)
	assert.Equal(t, models.BookingPending, b.Status)
}

func TestCalendarWebhookUnknownInviteeIgnored(t *testing.T) {
	f := newBookingFixture(t, "")
	body := calendlyBody(calendly.EventInviteeCreated, "nobody@example.com", "CAL1", "Portrait", "Studio")

	require.NoError(t, f.svc.HandleCalendarWebhook(context.Background(), body, ""))
	_, err := f.bookings.FindByCalendlyEventID(context.Background(), "CAL1")
	assert.Error(t, err)
}

func TestCalendarWebhookCancelsBooking(t *testing.T) {
	f := newBookingFixture(t, "")
	b := f.book(t)
	body := calendlyBody(calendly.EventInviteeCanceled, "client@example.com", "EVT1", "Portrait", "")

	require.NoError(t, f.svc.HandleCalendarWebhook(context.Background(), body, ""))

	stored, _ := f.bookings.FindByID(context.Background(), b.ID)
	assert.Equal(t, models.BookingCancelled, stored.Status)
	assert.Equal(t, "Cancelled via Calendly", stored.CancellationReason)
	assert.Zero(t, f.calendar.count(), "the event is already cancelled upstream")
}

func TestCalendarWebhookSignature(t *testing.T) {
	const secret = "whsec_cal"
	f := newBookingFixture(t, secret)
	now := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	body := calendlyBody(calendly.EventInviteeCreated, "client@example.com", "CAL5", "Family session", "Park")

	err := f.svc.HandleCalendarWebhook(context.Background(), body, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = f.svc.HandleCalendarWebhook(context.Background(), body, signature(body, "wrong", now))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, f.svc.HandleCalendarWebhook(context.Background(), body, signature(body, secret, now)))
	b, err := f.bookings.FindByCalendlyEventID(context.Background(), "CAL5")
	require.NoError(t, err)
	assert.Equal(t, "family", b.SessionType)
	assert.Equal(t, "Park", b.Location)
}

func TestCalendarWebhookMalformedBody(t *testing.T) {
	f := newBookingFixture(t, "")
	err := f.svc.HandleCalendarWebhook(context.Background(), []byte("not json"), "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestSessionTypeFor(t *testing.T) {
	assert.Equal(t, "wedding", sessionTypeFor("Wedding Consultation"))
	assert.Equal(t, "commercial", sessionTypeFor("Commercial shoot (2h)"))
	assert.Equal(t, "other", sessionTypeFor("Coffee chat"))
}
