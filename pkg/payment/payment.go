// Package payment talks to the payment gateway (Stripe): it creates payment
// intents and verifies signed webhook deliveries.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Stripe-Signature"

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// ErrNotConfigured is returned when no secret key is set.
var ErrNotConfigured = errors.New("payment: gateway is not configured")

// Intent is a created payment intent.
type Intent struct {
	ID           string
	ClientSecret string
}

// Event is the part of a verified webhook event the order workflow uses.
// IntentID and Metadata are set for payment_intent.* events.
type Event struct {
	ID       string
	Type     string
	IntentID string
	Metadata map[string]string
}

// Stripe is the gateway backed by stripe-go.
type Stripe struct {
	api           *client.API
	configured    bool
	webhookSecret string
}

// NewStripe builds a client whose HTTP calls are bounded by timeout.
func NewStripe(secretKey, webhookSecret string, timeout time.Duration) *Stripe {
	backends := stripe.NewBackends(&http.Client{Timeout: timeout})
	return &Stripe{
		api:           client.New(secretKey, backends),
		configured:    secretKey != "",
		webhookSecret: webhookSecret,
	}
}

// CreateIntent creates an intent for amount minor units of currency.
func (s *Stripe) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("payment: create intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseWebhook verifies the signature header against the raw body and
// decodes the event.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, errors.New("webhook secret is not configured")
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventIntentSucceeded, EventIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.IntentID = pi.ID
		out.Metadata = pi.Metadata
	}
	return out, nil
}
