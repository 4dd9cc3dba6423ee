package calendly_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/pkg/calendly"
)

const created = `{
  "event": "invitee.created",
  "payload": {
    "email": "Jane@Example.com",
    "name": "Jane Client",
    "scheduled_event": {
      "uri": "https://api.calendly.com/scheduled_events/EVT123",
      "name": "Wedding Consultation",
      "start_time": "2026-11-02T15:00:00Z",
      "end_time": "2026-11-02T16:30:00Z",
      "location": {"type": "physical", "location": "Studio A"}
    }
  }
}`

func TestParseWebhook(t *testing.T) {
	ev, err := calendly.ParseWebhook([]byte(created))
	require.NoError(t, err)

	assert.Equal(t, calendly.EventInviteeCreated, ev.Type)
	assert.Equal(t, "jane@example.com", ev.Email)
	assert.Equal(t, "EVT123", ev.EventID)
	assert.Equal(t, "Wedding Consultation", ev.EventName)
	assert.Equal(t, "Studio A", ev.Location)
	assert.Equal(t, 15, ev.Start.Hour())
	assert.Equal(t, 30, ev.End.Minute())
}

func TestParseWebhookRejectsGarbage(t *testing.T) {
	_, err := calendly.ParseWebhook([]byte(`{"payload":{}}`))
	assert.Error(t, err)
	_, err = calendly.ParseWebhook([]byte(`nope`))
	assert.Error(t, err)
}

func header(body []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + hex.EncodeToString(calendly.Sign(body, secret, ts))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(created)
	now := time.Now()

	assert.NoError(t, calendly.VerifySignature(body, header(body, "s3cret", now), "s3cret", calendly.DefaultTolerance, now))
	assert.ErrorIs(t, calendly.VerifySignature(body, header(body, "other", now), "s3cret", calendly.DefaultTolerance, now), calendly.ErrSignature)
	assert.ErrorIs(t, calendly.VerifySignature(body, "", "s3cret", calendly.DefaultTolerance, now), calendly.ErrSignature)
	assert.ErrorIs(t, calendly.VerifySignature(body, header(body, "s3cret", now.Add(-time.Hour)), "s3cret", calendly.DefaultTolerance, now), calendly.ErrSignature)
	assert.ErrorIs(t, calendly.VerifySignature(append(body, ' '), header(body, "s3cret", now), "s3cret", calendly.DefaultTolerance, now), calendly.ErrSignature)
}

func TestCancelEvent(t *testing.T) {
	var gotPath, gotAuth, gotReason string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotReason = body["reason"]
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := calendly.NewClient(srv.URL+"/", "tok", time.Second)
	require.NoError(t, c.CancelEvent(context.Background(), "EVT123", "client sick"))

	assert.Equal(t, "/scheduled_events/EVT123/cancellation", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "client sick", gotReason)
}

func TestCancelEventFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	assert.Error(t, calendly.NewClient(srv.URL, "tok", time.Second).CancelEvent(context.Background(), "EVT1", "x"))
	assert.ErrorIs(t, calendly.NewClient(srv.URL, "", time.Second).CancelEvent(context.Background(), "EVT1", "x"), calendly.ErrNotConfigured)
}
