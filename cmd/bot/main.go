package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"astrobot/internal/astro"
	"astrobot/internal/bootstrap"
	"astrobot/internal/bot"
	"astrobot/internal/config"
	cronpkg "astrobot/internal/cron"
	"astrobot/internal/fulfillment"
	"astrobot/internal/geo"
	"astrobot/internal/middleware"
	"astrobot/internal/payment"
	"astrobot/internal/pkg/telegram"
	"astrobot/internal/queue"
	"astrobot/internal/repository"
	"astrobot/internal/router"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if hasArg("--bootstrap-db") {
		if err := runDBBootstrap(logger); err != nil {
			logger.Fatal("Database bootstrap failed", zap.Error(err))
		}
		logger.Info("Database bootstrap completed")
		return
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}

	// --- Telegram Bot API (direct HTTP client) ---
	botAPI := telegram.NewBotAPI(cfg.Bot.Token)

	// --- Webhook Deduper (Redis with in-memory fallback) ---
	deduper, dedupeErr := middleware.NewDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		"webhook",
		10*time.Minute,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for webhook dedup, using in-memory fallback", zap.Error(dedupeErr))
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	predictionRepo := repository.NewPredictionRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	// --- External clients ---
	gateway := payment.NewYooKassaGateway(
		cfg.Payment.ShopID,
		cfg.Payment.SecretKey,
		cfg.Payment.WebhookSecret,
		cfg.Payment.ReturnURL,
		cfg.Payment.Currency,
	)
	charts := astro.NewClient(cfg.Astro)
	geocoder := geo.NewGeocoder(cfg.Geocoder)

	// --- Queue producer ---
	producer := queue.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()

	// --- Fulfillment ---
	fulfillSvc := fulfillment.NewService(
		userRepo,
		paymentRepo,
		predictionRepo,
		producer,
		charts,
		botAPI,
		logger,
	)

	// --- Bot ---
	botRepos := &bot.BotRepos{
		User:         userRepo,
		Payment:      paymentRepo,
		Prediction:   predictionRepo,
		Subscription: subscriptionRepo,
	}
	teleBot, err := bot.New(cfg, botRepos, gateway, fulfillSvc, producer, geocoder, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// --- Echo + Routes ---
	e := echo.New()
	e.HideBanner = true
	router.Setup(e, router.Deps{
		DB:          db,
		Gateway:     gateway,
		Fulfillment: fulfillSvc,
		APIKey:      cfg.API.Key,
		MaxRetries:  cfg.Worker.MaxRetries,
		Deduper:     deduper,
		BotWebhook:  teleBot.WebhookHandler(),
	}, logger)

	// --- Cron Scheduler ---
	forecaster := cronpkg.NewForecaster(userRepo, subscriptionRepo, charts, producer, logger)
	scheduler := cronpkg.New(cfg, &cronpkg.CronRepos{
		User:         userRepo,
		Payment:      paymentRepo,
		Subscription: subscriptionRepo,
	}, fulfillSvc, forecaster, logger)
	scheduler.Start()

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting astrobot server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	go teleBot.Start()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	teleBot.Stop()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func hasArg(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

func runDBBootstrap(logger *zap.Logger) error {
	dbCfg, err := config.LoadDatabaseOnly()
	if err != nil {
		return err
	}
	db, err := config.NewDatabase(dbCfg)
	if err != nil {
		return err
	}
	if err := bootstrap.Migrate(db); err != nil {
		return err
	}
	logger.Info("Schema migration completed")
	return nil
}
