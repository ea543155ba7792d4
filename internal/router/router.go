package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"astrobot/internal/fulfillment"
	"astrobot/internal/handler"
	"astrobot/internal/handler/api"
	"astrobot/internal/middleware"
	"astrobot/internal/payment"
	"astrobot/internal/repository"
)

// Deps carries everything Setup wires into the HTTP server.
type Deps struct {
	DB          *gorm.DB
	Gateway     payment.Gateway
	Fulfillment *fulfillment.Service
	APIKey      string
	MaxRetries  int64
	Deduper     middleware.Deduper

	// BotWebhook serves Telegram updates when the bot runs in webhook
	// mode, nil when polling.
	BotWebhook http.Handler
}

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, deps Deps, logger *zap.Logger) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	repos := &api.Repos{
		User:         repository.NewUserRepository(deps.DB),
		Payment:      repository.NewPaymentRepository(deps.DB),
		Prediction:   repository.NewPredictionRepository(deps.DB),
		Subscription: repository.NewSubscriptionRepository(deps.DB),
	}

	paymentHandler := api.NewPaymentHandler(repos, deps.Fulfillment, deps.MaxRetries, logger)
	userHandler := api.NewUserHandler(repos, logger)
	webhookHandler := handler.NewPaymentWebhookHandler(deps.Gateway, deps.Fulfillment, repos.Subscription, logger)

	// Admin API, token protected
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.APIAuth(deps.APIKey))
	apiGroup.GET("/users", userHandler.List)
	apiGroup.GET("/users/:telegram_id", userHandler.Get)
	apiGroup.GET("/payments/stats", paymentHandler.Stats)
	apiGroup.GET("/payments/failed", paymentHandler.ListFailed)
	apiGroup.GET("/payments/:id", paymentHandler.Get)
	apiGroup.POST("/payments/:id/retry", paymentHandler.Retry)

	// Payment gateway webhook (signature checked inside, dedup in front)
	paymentGroup := e.Group("/payment")
	paymentGroup.Use(middleware.PaymentEventDedup(deps.Deduper))
	paymentGroup.POST("/webhook", webhookHandler.Handle)

	// Telegram webhook
	if deps.BotWebhook != nil {
		botGroup := e.Group("/bot")
		botGroup.Use(middleware.TelegramUpdateDedup(deps.Deduper))
		botGroup.POST("/webhook", echo.WrapHandler(deps.BotWebhook))
	} else {
		logger.Info("Telegram webhook routes disabled (bot update mode is polling)")
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
}
