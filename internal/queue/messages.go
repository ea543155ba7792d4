package queue

import (
	"time"

	"astrobot/internal/models"
)

// JobKind discriminates message payloads on the wire.
type JobKind string

const (
	JobKindAnalysis       JobKind = "planet_analysis"
	JobKindRecommendation JobKind = "recommendations"
	JobKindQuestion       JobKind = "question"
	JobKindForecast       JobKind = "daily_forecast"
)

// AnalysisJob asks a planet worker to generate one planet's analysis.
// PaymentID is zero for the free moon analysis.
type AnalysisJob struct {
	Kind           JobKind       `json:"kind"`
	PaymentID      int64         `json:"payment_id,omitempty"`
	PredictionID   int64         `json:"prediction_id"`
	UserTelegramID int64         `json:"user_telegram_id"`
	Planet         models.Planet `json:"planet"`
	AstrologyData  string        `json:"astrology_data"`
	Timestamp      time.Time     `json:"timestamp"`
}

// RecommendationJob asks for topic recommendations built from a finished
// planet analysis.
type RecommendationJob struct {
	Kind           JobKind       `json:"kind"`
	PredictionID   int64         `json:"prediction_id"`
	UserTelegramID int64         `json:"user_telegram_id"`
	Planet         models.Planet `json:"planet"`
	Analysis       string        `json:"analysis"`
	Timestamp      time.Time     `json:"timestamp"`
}

// QuestionJob carries a free-form user question, optionally with the analysis
// text used as context (sun questions).
type QuestionJob struct {
	Kind           JobKind   `json:"kind"`
	PredictionID   int64     `json:"prediction_id"`
	UserTelegramID int64     `json:"user_telegram_id"`
	Question       string    `json:"question"`
	Analysis       string    `json:"analysis,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ForecastJob asks the forecast worker to generate and deliver one user's
// daily forecast.
type ForecastJob struct {
	Kind           JobKind   `json:"kind"`
	UserTelegramID int64     `json:"user_telegram_id"`
	ForecastDate   string    `json:"forecast_date"` // YYYY-MM-DD
	AstrologyData  string    `json:"astrology_data"`
	Timestamp      time.Time `json:"timestamp"`
}
