package worker

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"astrobot/internal/llm"
	"astrobot/internal/pkg/metrics"
	"astrobot/internal/queue"
)

// handleQuestion answers a free-form user question, with the stored analysis
// as context when the job carries one.
func (w *Worker) handleQuestion(ctx context.Context, msg kafka.Message) error {
	var job queue.QuestionJob
	if err := decodeJob(msg, &job); err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "bad_message").Inc()
		return err
	}

	user, err := w.users.FindByTelegramID(job.UserTelegramID)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "error").Inc()
		return fmt.Errorf("load user %d: %w", job.UserTelegramID, err)
	}

	prompt := llm.PromptVars(llm.QuestionPrompt(), map[string]string{
		"analysis":  job.Analysis,
		"question":  job.Question,
		"user_name": displayName(user),
	})

	result, err := w.completer.Complete(ctx, "question", prompt)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "llm_error").Inc()
		return fmt.Errorf("question answering: %w", err)
	}

	if err := w.predictions.AppendQA(job.PredictionID, job.Question, result.Content); err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "error").Inc()
		return fmt.Errorf("store answer: %w", err)
	}

	if err := w.notifier.SendLongMessage(job.UserTelegramID, result.Content); err != nil {
		metrics.DeliveriesTotal.WithLabelValues("answer", "error").Inc()
		return fmt.Errorf("deliver answer: %w", err)
	}
	metrics.DeliveriesTotal.WithLabelValues("answer", "ok").Inc()

	metrics.JobsProcessedTotal.WithLabelValues(w.topic, "ok").Inc()
	w.logger.Info("Question answered",
		zap.Int64("telegram_id", job.UserTelegramID),
		zap.Int64("prediction_id", job.PredictionID))
	return nil
}
