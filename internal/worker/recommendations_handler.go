package worker

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"astrobot/internal/llm"
	"astrobot/internal/models"
	"astrobot/internal/pkg/metrics"
	"astrobot/internal/queue"
)

// handleRecommendations turns a finished analysis into practical
// recommendations and delivers them.
func (w *Worker) handleRecommendations(ctx context.Context, msg kafka.Message) error {
	var job queue.RecommendationJob
	if err := decodeJob(msg, &job); err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "bad_message").Inc()
		return err
	}

	user, err := w.users.FindByTelegramID(job.UserTelegramID)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "error").Inc()
		return fmt.Errorf("load user %d: %w", job.UserTelegramID, err)
	}

	analysis := job.Analysis
	if analysis == "" {
		// Retried jobs may arrive without the analysis inline.
		pred, err := w.predictions.FindByID(job.PredictionID)
		if err != nil {
			metrics.JobsProcessedTotal.WithLabelValues(w.topic, "error").Inc()
			return fmt.Errorf("load prediction %d: %w", job.PredictionID, err)
		}
		analysis = pred.AnalysisFor(job.Planet)
	}

	prompt := llm.PromptVars(llm.RecommendationsPrompt(), map[string]string{
		"analysis":    analysis,
		"user_name":   displayName(user),
		"user_gender": genderLabel(user.Gender),
	})

	result, err := w.completer.Complete(ctx, "recommendations", prompt)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "llm_error").Inc()
		return fmt.Errorf("recommendations generation: %w", err)
	}

	meta := models.LLMMeta{Model: result.Model, TokensUsed: result.TokensUsed}
	if err := w.predictions.SetRecommendations(job.PredictionID, result.Content, meta); err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "error").Inc()
		return fmt.Errorf("store recommendations: %w", err)
	}

	if err := w.notifier.SendLongMessage(job.UserTelegramID, "💫 Рекомендации для вас\n\n"+result.Content); err != nil {
		metrics.DeliveriesTotal.WithLabelValues("recommendations", "error").Inc()
		return fmt.Errorf("deliver recommendations: %w", err)
	}
	metrics.DeliveriesTotal.WithLabelValues("recommendations", "ok").Inc()

	metrics.JobsProcessedTotal.WithLabelValues(w.topic, "ok").Inc()
	w.logger.Info("Recommendations delivered",
		zap.Int64("telegram_id", job.UserTelegramID),
		zap.Int64("prediction_id", job.PredictionID))
	return nil
}
