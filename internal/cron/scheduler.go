package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"astrobot/internal/config"
	"astrobot/internal/fulfillment"
	"astrobot/internal/repository"
)

// Scheduler manages all cron jobs.
type Scheduler struct {
	cron        *cron.Cron
	cfg         *config.Config
	repos       *CronRepos
	fulfillment *fulfillment.Service
	forecaster  *Forecaster
	logger      *zap.Logger
}

// CronRepos bundles repositories needed by cron jobs.
type CronRepos struct {
	User         *repository.UserRepository
	Payment      *repository.PaymentRepository
	Subscription *repository.SubscriptionRepository
}

// New creates a new cron scheduler.
func New(
	cfg *config.Config,
	repos *CronRepos,
	svc *fulfillment.Service,
	forecaster *Forecaster,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		cfg:         cfg,
		repos:       repos,
		fulfillment: svc,
		forecaster:  forecaster,
		logger:      logger,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler...")

	// Re-enqueue failed analyses - every 10 minutes
	s.cron.AddFunc("0 */10 * * * *", func() {
		s.logger.Debug("Running: retry failed analyses")
		s.retryFailedAnalyses()
	})

	// Sweep stuck processing payments - every 10 minutes
	s.cron.AddFunc("0 5/10 * * * *", func() {
		s.logger.Debug("Running: sweep stuck payments")
		s.sweepStuckPayments()
	})

	// Daily forecast fan-out - at 07:00
	s.cron.AddFunc("0 0 7 * * *", func() {
		s.logger.Debug("Running: daily forecast fan-out")
		s.forecaster.FanOut(context.Background())
	})

	// Deactivate expired subscriptions - hourly
	s.cron.AddFunc("0 0 * * * *", func() {
		s.logger.Debug("Running: deactivate expired subscriptions")
		s.deactivateExpiredSubscriptions()
	})

	s.cron.Start()
	s.logger.Info("Cron scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn("Cron jobs did not finish within 30s")
	}
}
