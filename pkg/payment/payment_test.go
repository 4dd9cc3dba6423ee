package payment_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/pkg/payment"
)

const secret = "whsec_test"

func sign(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

const succeeded = `{
  "id": "evt_1",
  "object": "event",
  "type": "payment_intent.succeeded",
  "data": {"object": {"id": "pi_123", "object": "payment_intent", "status": "succeeded", "metadata": {"orderId": "64b7f0c2a1b2c3d4e5f60718"}}}
}`

func TestParseWebhookSucceeded(t *testing.T) {
	gw := payment.NewStripe("sk_test", secret, time.Second)
	payload := []byte(succeeded)

	ev, err := gw.ParseWebhook(payload, sign(payload, secret, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, payment.EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_123", ev.IntentID)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", ev.Metadata["orderId"])
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	gw := payment.NewStripe("sk_test", secret, time.Second)
	payload := []byte(succeeded)

	_, err := gw.ParseWebhook(payload, sign(payload, "whsec_other", time.Now()))
	assert.Error(t, err)

	_, err = gw.ParseWebhook(payload, "")
	assert.Error(t, err)
}

func TestParseWebhookRejectsTamperedBody(t *testing.T) {
	gw := payment.NewStripe("sk_test", secret, time.Second)
	sig := sign([]byte(succeeded), secret, time.Now())

	_, err := gw.ParseWebhook([]byte(succeeded+" "), sig)
	assert.Error(t, err)
}

func TestParseWebhookRejectsStaleTimestamp(t *testing.T) {
	gw := payment.NewStripe("sk_test", secret, time.Second)
	payload := []byte(succeeded)

	_, err := gw.ParseWebhook(payload, sign(payload, secret, time.Now().Add(-time.Hour)))
	assert.Error(t, err)
}

func TestUnknownEventTypeHasNoIntent(t *testing.T) {
	gw := payment.NewStripe("sk_test", secret, time.Second)
	payload := []byte(`{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`)

	ev, err := gw.ParseWebhook(payload, sign(payload, secret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", ev.Type)
	assert.Empty(t, ev.IntentID)
}

func TestCreateIntentWithoutKey(t *testing.T) {
	gw := payment.NewStripe("", secret, time.Second)
	_, err := gw.CreateIntent(context.Background(), 12000, "usd", map[string]string{"orderId": "x"})
	assert.ErrorIs(t, err, payment.ErrNotConfigured)
}
