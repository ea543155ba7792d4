package payment

import "context"

// CreateResult contains the result of a payment creation.
type CreateResult struct {
	ExternalID string `json:"external_id"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}

// Metadata travels with the payment through the gateway and comes back in
// the webhook, tying the event to a user and purchase.
type Metadata struct {
	UserID      string `json:"user_id"`
	Planet      string `json:"planet,omitempty"`
	PaymentKind string `json:"payment_kind,omitempty"` // "planet" or "subscription"
}

// Gateway defines the interface for payment gateway implementations.
type Gateway interface {
	// Name returns the gateway identifier.
	Name() string

	// CreatePayment initiates a new payment and returns the redirect URL.
	CreatePayment(ctx context.Context, amountKopecks int64, description string, meta Metadata) (*CreateResult, error)

	// VerifyWebhook checks the webhook body signature.
	VerifyWebhook(body []byte, signature string) bool
}
