package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"astrobot/internal/fulfillment"
	"astrobot/internal/payment"
	"astrobot/internal/pkg/metrics"
	"astrobot/internal/repository"
)

// PaymentWebhookHandler receives payment notifications from the gateway and
// hands succeeded payments to the fulfillment service.
type PaymentWebhookHandler struct {
	gateway     payment.Gateway
	fulfillment *fulfillment.Service
	subs        *repository.SubscriptionRepository
	logger      *zap.Logger
}

func NewPaymentWebhookHandler(
	gateway payment.Gateway,
	svc *fulfillment.Service,
	subs *repository.SubscriptionRepository,
	logger *zap.Logger,
) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		gateway:     gateway,
		fulfillment: svc,
		subs:        subs,
		logger:      logger,
	}
}

// Handle processes one webhook POST. The gateway retries on any non-2xx, so
// everything except a bad signature answers 200: a permanently broken event
// would otherwise be redelivered forever.
func (h *PaymentWebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	signature := c.Request().Header.Get("X-Payment-Sha256-Signature")
	if !h.gateway.VerifyWebhook(body, signature) {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "bad_signature").Inc()
		h.logger.Warn("Webhook signature rejected",
			zap.String("remote_ip", c.RealIP()))
		return c.NoContent(http.StatusForbidden)
	}

	var event payment.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "bad_payload").Inc()
		h.logger.Warn("Webhook payload not parsed", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	h.logger.Info("Payment webhook received",
		zap.String("event", event.Event),
		zap.String("external_id", event.Object.ID),
		zap.String("gateway_status", event.Object.Status))

	outcome := "ok"
	switch event.Event {
	case payment.EventPaymentSucceeded:
		if event.Object.Metadata.PaymentKind == "subscription" {
			err = h.handleSubscriptionSucceeded(event.Object.ID)
		} else {
			err = h.fulfillment.OnPaymentSucceeded(c.Request().Context(), event.Object.ID)
		}
	case payment.EventPaymentCanceled:
		err = h.fulfillment.OnPaymentCanceled(event.Object.ID, event.Object.Status)
	case payment.EventRefundSucceeded:
		err = h.fulfillment.OnRefund(event.Object.ID)
	default:
		metrics.WebhookEventsTotal.WithLabelValues(event.Event, "ignored").Inc()
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	if err != nil {
		outcome = "error"
		h.logger.Error("Webhook event not processed",
			zap.String("event", event.Event),
			zap.String("external_id", event.Object.ID),
			zap.Error(err))
	}
	metrics.WebhookEventsTotal.WithLabelValues(event.Event, outcome).Inc()

	// Unmatched payments stay visible in the gateway dashboard; retrying
	// the delivery would not make a row appear.
	return c.JSON(http.StatusOK, map[string]string{"status": outcome})
}

func (h *PaymentWebhookHandler) handleSubscriptionSucceeded(externalID string) error {
	p, err := h.subs.FindPaymentByExternalID(externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Warn("Subscription payment not found",
				zap.String("external_id", externalID))
			return nil
		}
		return err
	}

	sub, err := h.subs.CreateOrExtend(p.UserID, p.DurationMonths)
	if err != nil {
		return err
	}

	err = h.subs.MarkPaymentCompleted(p.PaymentID, sub.SubscriptionID)
	if errors.Is(err, repository.ErrNoTransition) {
		return nil
	}
	return err
}
