package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"astrobot/internal/astro"
	"astrobot/internal/models"
	"astrobot/internal/queue"
	"astrobot/internal/repository"
)

// Notifier sends plain messages to a Telegram chat. Satisfied by the direct
// bot API client; tests substitute a fake.
type Notifier interface {
	SendMessage(chatID int64, text string, replyMarkup interface{}) error
}

// Enqueuer publishes analysis jobs. Satisfied by queue.Producer.
type Enqueuer interface {
	EnqueueAnalysis(ctx context.Context, job queue.AnalysisJob) error
}

// Store interfaces cover the slice of each repository the service touches,
// so the handoff flows can be tested against fakes.

type UserStore interface {
	FindByUserID(userID int64) (*models.User, error)
}

type PaymentStore interface {
	FindByExternalID(externalID string) (*models.PlanetPayment, error)
	MarkCompleted(paymentID int64) error
	MarkProcessing(paymentID int64) error
	MarkFailed(paymentID int64, reason string) error
	MarkRefunded(paymentID int64) error
	MarkAnalysisFailed(paymentID int64, cause string) error
}

type PredictionStore interface {
	FindLatestByUser(userID int64) (*models.Prediction, error)
	FindOrCreateForUser(userID int64, planet models.Planet, predType models.PredictionType, rawContent string) (*models.Prediction, error)
}

// Service connects succeeded payments to the worker queues. The webhook
// handler calls it for fresh payments, the cron retry pass for failed ones.
type Service struct {
	users       UserStore
	payments    PaymentStore
	predictions PredictionStore
	producer    Enqueuer
	charts      *astro.Client
	notifier    Notifier
	logger      *zap.Logger
}

func NewService(
	users UserStore,
	payments PaymentStore,
	predictions PredictionStore,
	producer Enqueuer,
	charts *astro.Client,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:       users,
		payments:    payments,
		predictions: predictions,
		producer:    producer,
		charts:      charts,
		notifier:    notifier,
		logger:      logger,
	}
}

// FirstPlanet returns the planet whose analysis job kicks off fulfillment for
// a payment. Bundles start with the sun and chain through PaidPlanetOrder.
func FirstPlanet(payment *models.PlanetPayment) models.Planet {
	if payment.PaymentType == models.PaymentTypeAllPlanets {
		return models.PaidPlanetOrder[0]
	}
	return payment.PlanetOrDefault()
}

// NextPlanet returns the planet to enqueue after the given one finished, or
// false when the sequence is done. Single-planet purchases never chain.
func NextPlanet(payment *models.PlanetPayment, done models.Planet) (models.Planet, bool) {
	if payment.PaymentType != models.PaymentTypeAllPlanets {
		return "", false
	}
	for i, p := range models.PaidPlanetOrder {
		if p == done && i+1 < len(models.PaidPlanetOrder) {
			return models.PaidPlanetOrder[i+1], true
		}
	}
	return "", false
}

// OnPaymentSucceeded handles a payment.succeeded webhook event. Idempotent:
// a redelivered event finds the payment already past pending and returns nil
// without enqueueing a second job.
func (s *Service) OnPaymentSucceeded(ctx context.Context, externalID string) error {
	payment, err := s.payments.FindByExternalID(externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no payment for gateway id %s", externalID)
		}
		return err
	}

	if err := s.payments.MarkCompleted(payment.PaymentID); err != nil {
		if errors.Is(err, repository.ErrNoTransition) {
			s.logger.Info("Payment already completed, skipping",
				zap.Int64("payment_id", payment.PaymentID),
				zap.String("external_id", externalID))
			return nil
		}
		return err
	}

	s.logger.Info("Payment completed",
		zap.Int64("payment_id", payment.PaymentID),
		zap.Int64("user_id", payment.UserID),
		zap.String("payment_type", string(payment.PaymentType)))

	user, err := s.users.FindByUserID(payment.UserID)
	if err != nil {
		return fmt.Errorf("payment %d: load user: %w", payment.PaymentID, err)
	}

	if err := s.enqueueFor(ctx, payment, user, FirstPlanet(payment)); err != nil {
		// The queue error lands on the payment row so the cron retry
		// pass can pick it up. The webhook still gets a 200.
		s.recordQueueFailure(payment.PaymentID, err)
		return nil
	}

	if s.notifier != nil {
		text := "✅ Оплата получена! Ваш астрологический разбор уже готовится, я пришлю его сюда."
		if err := s.notifier.SendMessage(user.TelegramID, text, nil); err != nil {
			s.logger.Warn("Payment confirmation not delivered",
				zap.Int64("telegram_id", user.TelegramID),
				zap.Error(err))
		}
	}
	return nil
}

// OnPaymentCanceled handles a payment.canceled webhook event.
func (s *Service) OnPaymentCanceled(externalID string, reason string) error {
	payment, err := s.payments.FindByExternalID(externalID)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "canceled by gateway"
	}
	err = s.payments.MarkFailed(payment.PaymentID, reason)
	if errors.Is(err, repository.ErrNoTransition) {
		return nil
	}
	return err
}

// OnRefund handles a refund.succeeded webhook event.
func (s *Service) OnRefund(externalID string) error {
	payment, err := s.payments.FindByExternalID(externalID)
	if err != nil {
		return err
	}
	err = s.payments.MarkRefunded(payment.PaymentID)
	if errors.Is(err, repository.ErrNoTransition) {
		return nil
	}
	return err
}

// Requeue re-enqueues the analysis job for a payment whose last attempt
// failed. The retry resumes at the first planet with no stored analysis.
// The row is moved to processing before publishing so the next retry pass
// does not pick it up again while the job sits in the queue.
func (s *Service) Requeue(ctx context.Context, payment *models.PlanetPayment) error {
	user, err := s.users.FindByUserID(payment.UserID)
	if err != nil {
		return err
	}

	if err := s.payments.MarkProcessing(payment.PaymentID); err != nil {
		return err
	}

	planet := FirstPlanet(payment)
	if payment.PaymentType == models.PaymentTypeAllPlanets {
		if pred, err := s.predictions.FindLatestByUser(payment.UserID); err == nil {
			for _, p := range models.PaidPlanetOrder {
				if pred.AnalysisFor(p) == "" {
					planet = p
					break
				}
			}
		}
	}

	if err := s.enqueueFor(ctx, payment, user, planet); err != nil {
		s.recordQueueFailure(payment.PaymentID, err)
		return err
	}
	return nil
}

// EnqueueFreeMoon queues the free moon analysis for a user. No payment row is
// involved, so the job carries a zero payment id.
func (s *Service) EnqueueFreeMoon(ctx context.Context, user *models.User) error {
	data := s.chartData(ctx, user)
	pred, err := s.predictions.FindOrCreateForUser(user.UserID, models.PlanetMoon, models.PredictionTypeFree, data)
	if err != nil {
		return err
	}
	job := queue.AnalysisJob{
		PredictionID:   pred.PredictionID,
		UserTelegramID: user.TelegramID,
		Planet:         models.PlanetMoon,
		AstrologyData:  data,
	}
	return s.producer.EnqueueAnalysis(ctx, job)
}

func (s *Service) enqueueFor(ctx context.Context, payment *models.PlanetPayment, user *models.User, planet models.Planet) error {
	data := s.chartData(ctx, user)
	pred, err := s.predictions.FindOrCreateForUser(payment.UserID, planet, models.PredictionTypePaid, data)
	if err != nil {
		return err
	}

	job := queue.AnalysisJob{
		PaymentID:      payment.PaymentID,
		PredictionID:   pred.PredictionID,
		UserTelegramID: user.TelegramID,
		Planet:         planet,
		AstrologyData:  data,
	}
	if err := s.producer.EnqueueAnalysis(ctx, job); err != nil {
		return fmt.Errorf("enqueue %s analysis: %w", planet, err)
	}

	s.logger.Info("Analysis job enqueued",
		zap.Int64("payment_id", payment.PaymentID),
		zap.String("planet", string(planet)))
	return nil
}

func (s *Service) chartData(ctx context.Context, user *models.User) string {
	if s.charts != nil {
		return s.charts.ChartData(ctx, user)
	}
	return astro.ProfileSummary(user)
}

func (s *Service) recordQueueFailure(paymentID int64, cause error) {
	s.logger.Error("Analysis job not enqueued",
		zap.Int64("payment_id", paymentID),
		zap.Error(cause))
	if err := s.payments.MarkAnalysisFailed(paymentID, cause.Error()); err != nil {
		s.logger.Error("Queue failure not recorded on payment",
			zap.Int64("payment_id", paymentID),
			zap.Error(err))
	}
}
