package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"astrobot/internal/pkg/metrics"
)

const retryBatchSize = 20

// retryFailedAnalyses re-enqueues payments whose analysis failed, bounded by
// the per-payment retry counter.
func (s *Scheduler) retryFailedAnalyses() {
	payments, err := s.repos.Payment.FindAnalysisFailed(retryBatchSize, s.cfg.Worker.MaxRetries)
	if err != nil {
		s.logger.Error("Retry pass query failed", zap.Error(err))
		return
	}
	if len(payments) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for i := range payments {
		p := &payments[i]
		if err := s.fulfillment.Requeue(ctx, p); err != nil {
			s.logger.Error("Retry enqueue failed",
				zap.Int64("payment_id", p.PaymentID), zap.Error(err))
			continue
		}
		metrics.JobRetriesTotal.Inc()
		s.logger.Info("Failed analysis re-enqueued",
			zap.Int64("payment_id", p.PaymentID),
			zap.Int64("retry_count", p.RetryCount))
	}
}

// sweepStuckPayments flags payments that started analysis long ago and never
// finished, so the retry pass can pick them up. A worker crash between
// MarkProcessing and the final transition leaves exactly this state behind.
func (s *Scheduler) sweepStuckPayments() {
	cutoff := time.Now().Add(-s.cfg.Worker.StuckAfter)
	payments, err := s.repos.Payment.FindStuckProcessing(cutoff)
	if err != nil {
		s.logger.Error("Stuck sweep query failed", zap.Error(err))
		return
	}

	for i := range payments {
		p := &payments[i]
		cause := fmt.Sprintf("analysis stuck in processing since %s",
			p.AnalysisStartedAt.Format(time.RFC3339))
		if err := s.repos.Payment.MarkAnalysisFailed(p.PaymentID, cause); err != nil {
			s.logger.Error("Stuck payment not flagged",
				zap.Int64("payment_id", p.PaymentID), zap.Error(err))
			continue
		}
		s.logger.Warn("Stuck payment flagged for retry",
			zap.Int64("payment_id", p.PaymentID))
	}
}

// deactivateExpiredSubscriptions turns off subscriptions past their end date.
func (s *Scheduler) deactivateExpiredSubscriptions() {
	n, err := s.repos.Subscription.DeactivateExpired()
	if err != nil {
		s.logger.Error("Subscription expiry failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Expired subscriptions deactivated", zap.Int64("count", n))
	}
}
