package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"astrobot/internal/llm"
	"astrobot/internal/models"
	"astrobot/internal/pkg/metrics"
	"astrobot/internal/queue"
)

// handleForecast generates and delivers one subscriber's daily forecast.
// The (user, date) unique index makes a redelivered job overwrite rather
// than duplicate.
func (w *Worker) handleForecast(ctx context.Context, msg kafka.Message) error {
	var job queue.ForecastJob
	if err := decodeJob(msg, &job); err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "bad_message").Inc()
		return err
	}

	user, err := w.users.FindByTelegramID(job.UserTelegramID)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "error").Inc()
		return fmt.Errorf("load user %d: %w", job.UserTelegramID, err)
	}

	date, err := time.Parse("2006-01-02", job.ForecastDate)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "bad_message").Inc()
		return fmt.Errorf("bad forecast date %q: %w", job.ForecastDate, err)
	}

	if existing, err := w.forecasts.FindByUserAndDate(user.UserID, date); err == nil && existing.DeliveredAt != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "skipped").Inc()
		return nil
	}

	prompt := llm.PromptVars(llm.DailyForecastPrompt(), map[string]string{
		"astrology_data": job.AstrologyData,
		"user_name":      displayName(user),
		"user_gender":    genderLabel(user.Gender),
		"current_date":   date.Format("02.01.2006"),
	})

	result, err := w.completer.Complete(ctx, "forecast", prompt)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "llm_error").Inc()
		return fmt.Errorf("forecast generation: %w", err)
	}

	forecast := &models.DailyForecast{
		UserID:        user.UserID,
		ForecastDate:  date,
		Content:       result.Content,
		LLMModel:      result.Model,
		LLMTokensUsed: result.TokensUsed,
	}
	if err := w.forecasts.Upsert(forecast); err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(w.topic, "error").Inc()
		return fmt.Errorf("store forecast: %w", err)
	}

	if err := w.notifier.SendLongMessage(job.UserTelegramID, result.Content); err != nil {
		metrics.DeliveriesTotal.WithLabelValues("forecast", "error").Inc()
		return fmt.Errorf("deliver forecast: %w", err)
	}
	metrics.DeliveriesTotal.WithLabelValues("forecast", "ok").Inc()

	if err := w.forecasts.MarkDelivered(user.UserID, date); err != nil {
		w.logger.Warn("Forecast delivery time not recorded",
			zap.Int64("user_id", user.UserID), zap.Error(err))
	}

	metrics.JobsProcessedTotal.WithLabelValues(w.topic, "ok").Inc()
	w.logger.Info("Daily forecast delivered",
		zap.Int64("telegram_id", job.UserTelegramID),
		zap.String("date", job.ForecastDate))
	return nil
}
