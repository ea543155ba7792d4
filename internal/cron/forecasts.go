package cron

import (
	"context"
	"time"

	"go.uber.org/zap"

	"astrobot/internal/astro"
	"astrobot/internal/queue"
	"astrobot/internal/repository"
)

// ForecastPublisher enqueues daily forecast jobs. Satisfied by
// queue.Producer.
type ForecastPublisher interface {
	EnqueueForecast(ctx context.Context, job queue.ForecastJob) error
}

// Forecaster fans one forecast job per active subscriber into the queue each
// morning. Generation and delivery happen in the forecast worker.
type Forecaster struct {
	users    *repository.UserRepository
	subs     *repository.SubscriptionRepository
	charts   *astro.Client
	producer ForecastPublisher
	logger   *zap.Logger
}

func NewForecaster(
	users *repository.UserRepository,
	subs *repository.SubscriptionRepository,
	charts *astro.Client,
	producer ForecastPublisher,
	logger *zap.Logger,
) *Forecaster {
	return &Forecaster{
		users:    users,
		subs:     subs,
		charts:   charts,
		producer: producer,
		logger:   logger,
	}
}

// FanOut enqueues today's forecast job for every active subscriber.
func (f *Forecaster) FanOut(ctx context.Context) {
	ids, err := f.subs.FindActiveSubscriberIDs()
	if err != nil {
		f.logger.Error("Subscriber listing failed", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}

	today := time.Now().Format("2006-01-02")
	enqueued := 0
	for _, userID := range ids {
		user, err := f.users.FindByUserID(userID)
		if err != nil {
			f.logger.Warn("Subscriber not loaded", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		if !user.HasBirthProfile() {
			continue
		}

		data := astro.ProfileSummary(user)
		if f.charts != nil {
			if transits, err := f.charts.DailyTransits(ctx, user); err == nil {
				data = transits
			} else {
				f.logger.Warn("Transit data unavailable, using profile summary",
					zap.Int64("user_id", userID), zap.Error(err))
			}
		}

		job := queue.ForecastJob{
			UserTelegramID: user.TelegramID,
			ForecastDate:   today,
			AstrologyData:  data,
		}
		if err := f.producer.EnqueueForecast(ctx, job); err != nil {
			f.logger.Error("Forecast job not enqueued",
				zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		enqueued++
	}

	f.logger.Info("Daily forecast fan-out finished",
		zap.Int("subscribers", len(ids)),
		zap.Int("enqueued", enqueued))
}
