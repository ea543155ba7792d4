package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"astrobot/internal/pkg/httpclient"
	"astrobot/internal/pkg/utils"
)

const yooKassaBaseURL = "https://api.yookassa.ru/v3"

// YooKassaGateway implements the Gateway interface for YooKassa.
type YooKassaGateway struct {
	shopID        string
	secretKey     string
	webhookSecret string
	returnURL     string
	currency      string
	client        *httpclient.Client
}

func NewYooKassaGateway(shopID, secretKey, webhookSecret, returnURL, currency string) *YooKassaGateway {
	return &YooKassaGateway{
		shopID:        shopID,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		returnURL:     returnURL,
		currency:      currency,
		client: httpclient.New().
			WithTimeout(30 * time.Second).
			WithBasicAuth(shopID, secretKey),
	}
}

func (y *YooKassaGateway) Name() string {
	return "yookassa"
}

type yooAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yooCreateRequest struct {
	Amount       yooAmount         `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation map[string]string `json:"confirmation"`
	Description  string            `json:"description"`
	Metadata     Metadata          `json:"metadata"`
}

type yooCreateResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// CreatePayment creates a redirect-confirmation payment. Each call carries a
// fresh Idempotence-Key so a network retry cannot double-charge.
func (y *YooKassaGateway) CreatePayment(ctx context.Context, amountKopecks int64, description string, meta Metadata) (*CreateResult, error) {
	body := yooCreateRequest{
		Amount: yooAmount{
			Value:    utils.FormatKopecks(amountKopecks),
			Currency: y.currency,
		},
		Capture: true,
		Confirmation: map[string]string{
			"type":       "redirect",
			"return_url": y.returnURL,
		},
		Description: description,
		Metadata:    meta,
	}

	resp, err := y.client.Request().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotence-Key", utils.GenerateUUID()).
		SetBody(body).
		Post(yooKassaBaseURL + "/payments")
	if err != nil {
		return nil, fmt.Errorf("yookassa create payment failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("yookassa create payment: status %d: %s", resp.StatusCode(), resp.String())
	}

	var parsed yooCreateResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("yookassa parse error: %w", err)
	}
	if parsed.ID == "" {
		return nil, fmt.Errorf("yookassa: no payment id in response")
	}
	if parsed.Confirmation.ConfirmationURL == "" {
		return nil, fmt.Errorf("yookassa: no confirmation url in response")
	}

	return &CreateResult{
		ExternalID: parsed.ID,
		PaymentURL: parsed.Confirmation.ConfirmationURL,
		Status:     parsed.Status,
	}, nil
}

// VerifyWebhook checks an HMAC-SHA256 signature over the raw body when a
// webhook secret is configured. YooKassa itself authenticates webhooks by
// source IP and sends no signature, so the default (no secret) accepts every
// delivery and the IP allow-list lives in the reverse proxy. The HMAC path is
// for deployments that front the endpoint with a signing proxy.
func (y *YooKassaGateway) VerifyWebhook(body []byte, signature string) bool {
	if y.webhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(y.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookEvent is the payload YooKassa posts to the webhook endpoint.
type WebhookEvent struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"amount"`
		Metadata Metadata `json:"metadata"`
	} `json:"object"`
}

// Webhook event names YooKassa sends.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentCanceled  = "payment.canceled"
	EventRefundSucceeded  = "refund.succeeded"
)
