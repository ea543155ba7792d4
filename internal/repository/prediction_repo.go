package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"astrobot/internal/models"
)

// PredictionRepository handles predictions database operations.
type PredictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Create inserts a new prediction row.
func (r *PredictionRepository) Create(p *models.Prediction) error {
	return r.db.Create(p).Error
}

// FindByID returns a prediction by primary key.
func (r *PredictionRepository) FindByID(predictionID int64) (*models.Prediction, error) {
	var p models.Prediction
	if err := r.db.Where("prediction_id = ?", predictionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindLatestByUser returns the newest active prediction row for the user.
func (r *PredictionRepository) FindLatestByUser(userID int64) (*models.Prediction, error) {
	var p models.Prediction
	err := r.db.Where("user_id = ? AND is_active = true AND is_deleted = false", userID).
		Order("created_at DESC").First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindOrCreateForUser returns the user's active prediction row, creating one
// when none exists. The workers all write into the same aggregating row. A
// fresh row carries the raw chart data in `content` so the content check
// holds before any analysis lands. When a paid purchase attaches to a row
// that started as the free moon funnel, the row is upgraded in place:
// prediction_type and planet flip to the purchase and expires_at starts
// ticking.
func (r *PredictionRepository) FindOrCreateForUser(userID int64, planet models.Planet, predType models.PredictionType, rawContent string) (*models.Prediction, error) {
	p, err := r.FindLatestByUser(userID)
	if err == nil {
		if p.NeedsPaidUpgrade(predType) {
			exp := time.Now().AddDate(1, 0, 0)
			if err := r.db.Model(&models.Prediction{}).
				Where("prediction_id = ?", p.PredictionID).
				Updates(map[string]interface{}{
					"prediction_type": models.PredictionTypePaid,
					"planet":          planet,
					"expires_at":      exp,
				}).Error; err != nil {
				return nil, err
			}
			p.PredictionType = models.PredictionTypePaid
			p.Planet = planet
			p.ExpiresAt = &exp
		}
		return p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &models.Prediction{
		UserID:         userID,
		Planet:         planet,
		PredictionType: predType,
		Content:        &rawContent,
	}
	if predType == models.PredictionTypePaid {
		exp := time.Now().AddDate(1, 0, 0)
		fresh.ExpiresAt = &exp
	}
	if err := r.db.Create(fresh).Error; err != nil {
		return nil, err
	}
	return fresh, nil
}

// SetAnalysis writes the generated analysis into the planet's column together
// with the LLM metadata.
func (r *PredictionRepository) SetAnalysis(predictionID int64, planet models.Planet, content string, meta models.LLMMeta) error {
	column := models.AnalysisColumn(planet)
	if column == "" {
		return errors.New("unknown planet: " + string(planet))
	}
	return r.db.Model(&models.Prediction{}).
		Where("prediction_id = ?", predictionID).
		Updates(map[string]interface{}{
			column:            content,
			"llm_model":       meta.Model,
			"llm_tokens_used": meta.TokensUsed,
			"llm_temperature": meta.Temperature,
		}).Error
}

// SetRecommendations writes the generated recommendations text.
func (r *PredictionRepository) SetRecommendations(predictionID int64, content string, meta models.LLMMeta) error {
	return r.db.Model(&models.Prediction{}).
		Where("prediction_id = ?", predictionID).
		Updates(map[string]interface{}{
			"recommendations": content,
			"llm_model":       meta.Model,
			"llm_tokens_used": meta.TokensUsed,
		}).Error
}

// AppendQA appends a question/answer pair to the prediction's Q&A log and
// keeps the latest pair in the question/answer columns.
func (r *PredictionRepository) AppendQA(predictionID int64, question, answer string) error {
	p, err := r.FindByID(predictionID)
	if err != nil {
		return err
	}

	entry := "Q: " + question + "\nA: " + answer
	log := models.Text(p.QAResponses)
	if strings.TrimSpace(log) != "" {
		log += "\n\n"
	}
	log += entry

	return r.db.Model(&models.Prediction{}).
		Where("prediction_id = ?", predictionID).
		Updates(map[string]interface{}{
			"question":     question,
			"answer":       answer,
			"qa_responses": log,
		}).Error
}
