package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhook(t *testing.T) {
	g := NewYooKassaGateway("shop", "api_secret", "topsecret", "https://t.me/bot", "RUB")
	body := []byte(`{"event":"payment.succeeded"}`)

	assert.True(t, g.VerifyWebhook(body, sign("topsecret", body)))
	assert.False(t, g.VerifyWebhook(body, sign("wrongsecret", body)))
	assert.False(t, g.VerifyWebhook(body, ""))
	assert.False(t, g.VerifyWebhook([]byte(`{"event":"tampered"}`), sign("topsecret", body)))
}

func TestVerifyWebhookNoWebhookSecret(t *testing.T) {
	// YooKassa authenticates webhooks by source IP and sends no signature.
	// The API secret alone must not turn on HMAC checks, or every genuine
	// unsigned delivery would be rejected.
	g := NewYooKassaGateway("shop", "live_secret", "", "https://t.me/bot", "RUB")
	assert.True(t, g.VerifyWebhook([]byte(`{"event":"payment.succeeded"}`), ""))
	assert.True(t, g.VerifyWebhook([]byte("anything"), "whatever"))
}

func TestWebhookEventParsing(t *testing.T) {
	raw := `{
		"type": "notification",
		"event": "payment.succeeded",
		"object": {
			"id": "2d6ee2d4-000f-5000-8000-1b68e7b15f3f",
			"status": "succeeded",
			"amount": {"value": "500.00", "currency": "RUB"},
			"metadata": {"user_id": "42", "planet": "venus", "payment_kind": "planet"}
		}
	}`

	var event WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	assert.Equal(t, EventPaymentSucceeded, event.Event)
	assert.Equal(t, "2d6ee2d4-000f-5000-8000-1b68e7b15f3f", event.Object.ID)
	assert.Equal(t, "succeeded", event.Object.Status)
	assert.Equal(t, "500.00", event.Object.Amount.Value)
	assert.Equal(t, "42", event.Object.Metadata.UserID)
	assert.Equal(t, "venus", event.Object.Metadata.Planet)
	assert.Equal(t, "planet", event.Object.Metadata.PaymentKind)
}

func TestWebhookEventUnknownFieldsIgnored(t *testing.T) {
	raw := `{"event": "refund.succeeded", "object": {"id": "r-1"}, "extra": true}`

	var event WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	assert.Equal(t, EventRefundSucceeded, event.Event)
	assert.Equal(t, "r-1", event.Object.ID)
}
