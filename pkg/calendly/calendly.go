// Package calendly is the scheduling-service integration: cancelling a
// scheduled event and reading invitee webhook deliveries.
package calendly

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	xhttp "github.com/shashiranjanraj/studio/pkg/http"
)

// SignatureHeader carries the webhook signature ("t=<unix>,v1=<hex>").
const SignatureHeader = "Calendly-Webhook-Signature"

const (
	EventInviteeCreated  = "invitee.created"
	EventInviteeCanceled = "invitee.canceled"
)

// DefaultTolerance bounds how old a signed delivery may be.
const DefaultTolerance = 5 * time.Minute

var (
	ErrNotConfigured = errors.New("calendly: api token is not configured")
	ErrSignature     = errors.New("calendly: invalid webhook signature")
)

// Client calls the scheduling API.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
	}
}

// CancelEvent cancels the scheduled event eventID with reason.
func (c *Client) CancelEvent(ctx context.Context, eventID, reason string) error {
	if c.token == "" {
		return ErrNotConfigured
	}
	if eventID == "" {
		return errors.New("calendly: empty event id")
	}

	resp, err := xhttp.Post(c.baseURL+"/scheduled_events/"+url.PathEscape(eventID)+"/cancellation").
		WithContext(ctx).
		Bearer(c.token).
		Body(map[string]string{"reason": reason}).
		Timeout(c.timeout).
		Send()
	if err != nil {
		return fmt.Errorf("calendly: cancel %s: %w", eventID, err)
	}
	if err := resp.Throw(); err != nil {
		return fmt.Errorf("calendly: cancel %s: %w", eventID, err)
	}
	return nil
}

// Event is a decoded invitee webhook delivery.
type Event struct {
	Type      string
	Email     string
	Name      string
	EventID   string
	EventName string
	Start     time.Time
	End       time.Time
	Location  string
}

type webhookBody struct {
	Event   string `json:"event"`
	Payload struct {
		Email          string `json:"email"`
		Name           string `json:"name"`
		ScheduledEvent struct {
			URI       string    `json:"uri"`
			Name      string    `json:"name"`
			StartTime time.Time `json:"start_time"`
			EndTime   time.Time `json:"end_time"`
			Location  struct {
				Type     string `json:"type"`
				Location string `json:"location"`
				JoinURL  string `json:"join_url"`
			} `json:"location"`
		} `json:"scheduled_event"`
	} `json:"payload"`
}

// ParseWebhook decodes a delivery. The event id is the last path segment
// of the scheduled event URI.
func ParseWebhook(body []byte) (*Event, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("calendly: decode webhook: %w", err)
	}
	if wb.Event == "" {
		return nil, errors.New("calendly: webhook has no event type")
	}

	se := wb.Payload.ScheduledEvent
	loc := se.Location.Location
	if loc == "" {
		loc = se.Location.JoinURL
	}
	return &Event{
		Type:      wb.Event,
		Email:     strings.ToLower(strings.TrimSpace(wb.Payload.Email)),
		Name:      wb.Payload.Name,
		EventID:   EventIDFromURI(se.URI),
		EventName: se.Name,
		Start:     se.StartTime,
		End:       se.EndTime,
		Location:  loc,
	}, nil
}

// EventIDFromURI returns the trailing segment of an event URI.
func EventIDFromURI(uri string) string {
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// VerifySignature checks header against an HMAC-SHA256 of "t.body" keyed by
// secret, and rejects deliveries older than tolerance.
func VerifySignature(body []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return ErrSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrSignature
	}
	if tolerance > 0 && now.Sub(time.Unix(unix, 0)) > tolerance {
		return ErrSignature
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrSignature
	}
	if !hmac.Equal(got, Sign(body, secret, ts)) {
		return ErrSignature
	}
	return nil
}

// Sign computes the raw signature for body at timestamp ts.
func Sign(body []byte, secret, ts string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "."))
	mac.Write(body)
	return mac.Sum(nil)
}
