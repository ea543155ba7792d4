package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"astrobot/internal/llm"
	"astrobot/internal/models"
	"astrobot/internal/queue"
)

// Notifier sends generated content to a Telegram chat. Satisfied by the
// direct bot API client.
type Notifier interface {
	SendMessage(chatID int64, text string, replyMarkup interface{}) error
	SendLongMessage(chatID int64, text string) error
}

// Publisher enqueues the follow-up jobs a handler produces. Satisfied by
// queue.Producer.
type Publisher interface {
	EnqueueAnalysis(ctx context.Context, job queue.AnalysisJob) error
	EnqueueRecommendations(ctx context.Context, job queue.RecommendationJob) error
}

// Store interfaces cover the slice of each repository the handlers touch, so
// handler flows can be tested against fakes.

type UserStore interface {
	FindByTelegramID(telegramID int64) (*models.User, error)
}

type PaymentStore interface {
	FindByID(paymentID int64) (*models.PlanetPayment, error)
	MarkProcessing(paymentID int64) error
	MarkAnalysisCompleted(paymentID int64) error
	MarkDelivered(paymentID int64) error
	MarkAnalysisFailed(paymentID int64, cause string) error
}

type PredictionStore interface {
	FindByID(predictionID int64) (*models.Prediction, error)
	SetAnalysis(predictionID int64, planet models.Planet, content string, meta models.LLMMeta) error
	SetRecommendations(predictionID int64, content string, meta models.LLMMeta) error
	AppendQA(predictionID int64, question, answer string) error
}

type ForecastStore interface {
	FindByUserAndDate(userID int64, date time.Time) (*models.DailyForecast, error)
	Upsert(f *models.DailyForecast) error
	MarkDelivered(userID int64, date time.Time) error
}

// Worker processes jobs from one queue topic.
type Worker struct {
	topic       string
	users       UserStore
	payments    PaymentStore
	predictions PredictionStore
	forecasts   ForecastStore
	completer   llm.Completer
	notifier    Notifier
	publisher   Publisher
	logger      *zap.Logger
}

func New(
	topic string,
	users UserStore,
	payments PaymentStore,
	predictions PredictionStore,
	forecasts ForecastStore,
	completer llm.Completer,
	notifier Notifier,
	publisher Publisher,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		topic:       topic,
		users:       users,
		payments:    payments,
		predictions: predictions,
		forecasts:   forecasts,
		completer:   completer,
		notifier:    notifier,
		publisher:   publisher,
		logger:      logger,
	}
}

// Handler returns the message handler for the worker's topic.
func (w *Worker) Handler() (queue.MessageHandler, error) {
	switch w.topic {
	case queue.TopicMoonPredictions, queue.TopicSunPredictions,
		queue.TopicMercuryPredictions, queue.TopicVenusPredictions,
		queue.TopicMarsPredictions:
		return w.handleAnalysis, nil
	case queue.TopicRecommendations, queue.TopicSunRecommendations:
		return w.handleRecommendations, nil
	case queue.TopicQuestions, queue.TopicSunQuestions:
		return w.handleQuestion, nil
	case queue.TopicPersonalForecasts:
		return w.handleForecast, nil
	}
	return nil, fmt.Errorf("no handler for topic %q", w.topic)
}

func decodeJob(msg kafka.Message, out interface{}) error {
	if err := json.Unmarshal(msg.Value, out); err != nil {
		return fmt.Errorf("decode %s message: %w", msg.Topic, err)
	}
	return nil
}

// displayName picks the name the prompts address the user by.
func displayName(u *models.User) string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	}
	return "друг"
}

func genderLabel(g models.Gender) string {
	switch g {
	case models.GenderMale:
		return "мужской"
	case models.GenderFemale:
		return "женский"
	}
	return "не указан"
}
