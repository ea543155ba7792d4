package api

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"astrobot/internal/fulfillment"
	"astrobot/internal/pkg/metrics"
	"astrobot/internal/repository"
)

// PaymentHandler exposes the payment diagnostics endpoints support uses when
// a purchase never got delivered.
type PaymentHandler struct {
	repos       *Repos
	fulfillment *fulfillment.Service
	maxRetries  int64
	logger      *zap.Logger
}

func NewPaymentHandler(repos *Repos, svc *fulfillment.Service, maxRetries int64, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		repos:       repos,
		fulfillment: svc,
		maxRetries:  maxRetries,
		logger:      logger,
	}
}

// Stats returns per-status payment counts.
// GET /api/payments/stats
func (h *PaymentHandler) Stats(c echo.Context) error {
	counts, err := h.repos.Payment.CountByStatus()
	if err != nil {
		h.logger.Error("Failed to count payments", zap.Error(err))
		return errorResponse(c, "Failed to retrieve payment stats")
	}

	obj := make(map[string]int64, len(counts))
	for status, n := range counts {
		obj[string(status)] = n
	}
	return successResponse(c, "Successful", obj)
}

// ListFailed returns payments whose analysis failed, oldest first.
// GET /api/payments/failed
func (h *PaymentHandler) ListFailed(c echo.Context) error {
	limit := queryInt(c, "limit", 50)
	if limit > 500 {
		limit = 500
	}

	// maxRetries+1 so exhausted payments still show up for support.
	payments, err := h.repos.Payment.FindAnalysisFailed(limit, h.maxRetries+1)
	if err != nil {
		h.logger.Error("Failed to list failed payments", zap.Error(err))
		return errorResponse(c, "Failed to retrieve failed payments")
	}

	items := make([]map[string]interface{}, 0, len(payments))
	for _, p := range payments {
		items = append(items, map[string]interface{}{
			"payment_id":   p.PaymentID,
			"user_id":      p.UserID,
			"payment_type": p.PaymentType,
			"planet":       p.Planet,
			"retry_count":  p.RetryCount,
			"last_error":   p.LastError,
			"created_at":   p.CreatedAt,
		})
	}
	return successResponse(c, "Successful", items)
}

// Get returns one payment by id.
// GET /api/payments/:id
func (h *PaymentHandler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorResponse(c, "Invalid payment id")
	}

	p, err := h.repos.Payment.FindByID(id)
	if err != nil {
		return errorResponse(c, "Payment not found")
	}
	return successResponse(c, "Successful", p)
}

// Retry manually re-enqueues a failed payment, bypassing the retry counter.
// POST /api/payments/:id/retry
func (h *PaymentHandler) Retry(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorResponse(c, "Invalid payment id")
	}

	p, err := h.repos.Payment.FindByID(id)
	if err != nil {
		return errorResponse(c, "Payment not found")
	}
	if !p.Status.Grants() {
		return errorResponse(c, "Payment is not in a retryable state: "+string(p.Status))
	}

	if err := h.fulfillment.Requeue(c.Request().Context(), p); err != nil {
		if errors.Is(err, repository.ErrNoTransition) {
			return errorResponse(c, "Payment cannot move to processing from: "+string(p.Status))
		}
		h.logger.Error("Manual retry enqueue failed",
			zap.Int64("payment_id", p.PaymentID), zap.Error(err))
		return errorResponse(c, "Failed to enqueue analysis job")
	}

	metrics.JobRetriesTotal.Inc()
	h.logger.Info("Payment manually re-enqueued", zap.Int64("payment_id", p.PaymentID))
	return successResponse(c, "Payment re-enqueued", map[string]interface{}{
		"payment_id": p.PaymentID,
	})
}
