package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"astrobot/internal/fulfillment"
	"astrobot/internal/llm"
	"astrobot/internal/models"
	"astrobot/internal/pkg/metrics"
	"astrobot/internal/queue"
	"astrobot/internal/repository"
)

// handleAnalysis generates one planet's analysis, stores it, delivers it to
// the user, and chains the next job of the purchase.
func (w *Worker) handleAnalysis(ctx context.Context, msg kafka.Message) error {
	var job queue.AnalysisJob
	if err := decodeJob(msg, &job); err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "bad_message").Inc()
		return err
	}

	log := w.logger.With(
		zap.String("planet", string(job.Planet)),
		zap.Int64("payment_id", job.PaymentID),
		zap.Int64("prediction_id", job.PredictionID),
		zap.Int64("telegram_id", job.UserTelegramID))

	var paid *models.PlanetPayment
	if job.PaymentID != 0 {
		var err error
		paid, err = w.payments.FindByID(job.PaymentID)
		if err != nil {
			metrics.JobsProcessedTotal.WithLabelValues(w.topic, "orphan").Inc()
			return fmt.Errorf("analysis job for missing payment %d: %w", job.PaymentID, err)
		}

		if err := w.payments.MarkProcessing(job.PaymentID); err != nil {
			if errors.Is(err, repository.ErrNoTransition) {
				// Already delivered, refunded, or retried past us.
				log.Info("Payment not in a processable state, skipping",
					zap.String("status", string(paid.Status)))
				metrics.JobsProcessedTotal.WithLabelValues(w.topic, "skipped").Inc()
				return nil
			}
			return err
		}
	}

	user, err := w.users.FindByTelegramID(job.UserTelegramID)
	if err != nil {
		return w.failPayment(job.PaymentID, fmt.Errorf("load user %d: %w", job.UserTelegramID, err))
	}

	prompt := llm.PromptVars(llm.PlanetPrompt(job.Planet), map[string]string{
		"astrology_data": job.AstrologyData,
		"user_name":      displayName(user),
		"user_gender":    genderLabel(user.Gender),
	})

	result, err := w.completer.Complete(ctx, "analysis", prompt)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "llm_error").Inc()
		return w.failPayment(job.PaymentID, fmt.Errorf("%s analysis generation: %w", job.Planet, err))
	}

	meta := models.LLMMeta{
		Model:       result.Model,
		TokensUsed:  result.TokensUsed,
		Temperature: &result.Temperature,
	}
	if err := w.predictions.SetAnalysis(job.PredictionID, job.Planet, result.Content, meta); err != nil {
		return w.failPayment(job.PaymentID, fmt.Errorf("store %s analysis: %w", job.Planet, err))
	}
	if job.PaymentID != 0 {
		if err := w.payments.MarkAnalysisCompleted(job.PaymentID); err != nil {
			log.Warn("Analysis completion time not recorded", zap.Error(err))
		}
	}

	header := fmt.Sprintf("%s Ваш разбор: %s\n\n", job.Planet.Emoji(), job.Planet.RussianName())
	if err := w.notifier.SendLongMessage(job.UserTelegramID, header+result.Content); err != nil {
		metrics.DeliveriesTotal.WithLabelValues("analysis", "error").Inc()
		return w.failPayment(job.PaymentID, fmt.Errorf("deliver %s analysis: %w", job.Planet, err))
	}
	metrics.DeliveriesTotal.WithLabelValues("analysis", "ok").Inc()

	if err := w.chainNext(ctx, paid, &job, result.Content); err != nil {
		// The analysis itself made it out; the chain failure lands on
		// the payment row for the retry pass.
		log.Error("Follow-up job not enqueued", zap.Error(err))
		return w.failPayment(job.PaymentID, err)
	}

	metrics.JobsProcessedTotal.WithLabelValues(w.topic, "ok").Inc()
	log.Info("Analysis delivered")
	return nil
}

// chainNext enqueues whatever follows a delivered analysis: the next planet
// of a bundle, or the closing recommendations job. The payment flips to
// delivered only when the sequence is done.
func (w *Worker) chainNext(ctx context.Context, paid *models.PlanetPayment, job *queue.AnalysisJob, analysis string) error {
	if paid != nil {
		if next, ok := fulfillment.NextPlanet(paid, job.Planet); ok {
			return w.publisher.EnqueueAnalysis(ctx, queue.AnalysisJob{
				PaymentID:      job.PaymentID,
				PredictionID:   job.PredictionID,
				UserTelegramID: job.UserTelegramID,
				Planet:         next,
				AstrologyData:  job.AstrologyData,
			})
		}

		if err := w.payments.MarkDelivered(paid.PaymentID); err != nil &&
			!errors.Is(err, repository.ErrNoTransition) {
			return fmt.Errorf("mark payment delivered: %w", err)
		}
	}

	return w.publisher.EnqueueRecommendations(ctx, queue.RecommendationJob{
		PredictionID:   job.PredictionID,
		UserTelegramID: job.UserTelegramID,
		Planet:         job.Planet,
		Analysis:       analysis,
	})
}

// failPayment records a handler failure on the payment row. Free analyses
// have no row, so the error just propagates to the consumer log.
func (w *Worker) failPayment(paymentID int64, cause error) error {
	if paymentID == 0 {
		return cause
	}
	if err := w.payments.MarkAnalysisFailed(paymentID, cause.Error()); err != nil {
		w.logger.Error("Failure not recorded on payment",
			zap.Int64("payment_id", paymentID),
			zap.Error(err))
	}
	return cause
}
