package models

import "time"

// DailyForecast maps to the `daily_forecasts` table. One row per user per
// forecast date.
type DailyForecast struct {
	ForecastID   int64     `gorm:"column:forecast_id;primaryKey;autoIncrement" json:"forecast_id"`
	UserID       int64     `gorm:"column:user_id;not null;uniqueIndex:daily_forecasts_user_date_idx" json:"user_id"`
	ForecastDate time.Time `gorm:"column:forecast_date;type:date;not null;uniqueIndex:daily_forecasts_user_date_idx" json:"forecast_date"`
	Content      string    `gorm:"column:content;not null" json:"content"`

	LLMModel      string `gorm:"column:llm_model" json:"llm_model"`
	LLMTokensUsed int64  `gorm:"column:llm_tokens_used" json:"llm_tokens_used"`

	CreatedAt   time.Time  `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at" json:"delivered_at"`
}

func (DailyForecast) TableName() string {
	return "daily_forecasts"
}
