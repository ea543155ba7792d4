package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"astrobot/internal/models"
)

// ForecastRepository handles daily_forecasts database operations.
type ForecastRepository struct {
	db *gorm.DB
}

func NewForecastRepository(db *gorm.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// Upsert stores a forecast for the user and date, replacing any earlier
// generation for the same day.
func (r *ForecastRepository) Upsert(f *models.DailyForecast) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "forecast_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content", "llm_model", "llm_tokens_used", "created_at",
		}),
	}).Create(f).Error
}

// FindByUserAndDate returns the forecast generated for a user on a date.
func (r *ForecastRepository) FindByUserAndDate(userID int64, date time.Time) (*models.DailyForecast, error) {
	var f models.DailyForecast
	day := date.Truncate(24 * time.Hour)
	if err := r.db.Where("user_id = ? AND forecast_date = ?", userID, day).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// MarkDelivered records that the forecast reached the user. Keyed on user
// and date because an upsert does not report the surviving row id.
func (r *ForecastRepository) MarkDelivered(userID int64, date time.Time) error {
	return r.db.Model(&models.DailyForecast{}).
		Where("user_id = ? AND forecast_date = ?", userID, date.Truncate(24*time.Hour)).
		Update("delivered_at", time.Now()).Error
}
