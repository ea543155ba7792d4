package models

import "time"

// Prediction maps to the `predictions` table. One row aggregates the per-planet
// analysis texts generated for a user, plus recommendations and Q&A threads.
// Content columns are nullable so the at_least_one_content_type check actually
// bites; a fresh row is seeded with the raw chart data in `content`.
type Prediction struct {
	PredictionID   int64          `gorm:"column:prediction_id;primaryKey;autoIncrement" json:"prediction_id"`
	UserID         int64          `gorm:"column:user_id;not null;index:predictions_user_id_idx" json:"user_id"`
	Planet         Planet         `gorm:"column:planet;type:text;not null;index:predictions_planet_idx" json:"planet"`
	PredictionType PredictionType `gorm:"column:prediction_type;type:text;not null" json:"prediction_type"`

	// Raw chart data the analyses were generated from
	Content *string `gorm:"column:content" json:"content"`

	// Analysis content, one column per planet
	MoonAnalysis    *string `gorm:"column:moon_analysis" json:"moon_analysis"`
	SunAnalysis     *string `gorm:"column:sun_analysis" json:"sun_analysis"`
	MercuryAnalysis *string `gorm:"column:mercury_analysis" json:"mercury_analysis"`
	VenusAnalysis   *string `gorm:"column:venus_analysis" json:"venus_analysis"`
	MarsAnalysis    *string `gorm:"column:mars_analysis" json:"mars_analysis"`

	Recommendations *string `gorm:"column:recommendations" json:"recommendations"`
	Question        *string `gorm:"column:question" json:"question"`
	Answer          *string `gorm:"column:answer" json:"answer"`
	QAResponses     *string `gorm:"column:qa_responses" json:"qa_responses"`

	// LLM generation metadata
	LLMModel       string   `gorm:"column:llm_model" json:"llm_model"`
	LLMTokensUsed  int64    `gorm:"column:llm_tokens_used" json:"llm_tokens_used"`
	LLMTemperature *float64 `gorm:"column:llm_temperature" json:"llm_temperature"`

	CreatedAt time.Time  `gorm:"column:created_at;not null;autoCreateTime;index:predictions_created_at_idx,sort:desc" json:"created_at"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index:predictions_expires_at_idx" json:"expires_at"`

	IsActive  bool   `gorm:"column:is_active;not null;default:true;index:predictions_active_idx" json:"is_active"`
	IsDeleted bool   `gorm:"column:is_deleted;not null;default:false" json:"is_deleted"`
	Notes     string `gorm:"column:notes" json:"notes"`
}

func (Prediction) TableName() string {
	return "predictions"
}

// LLMMeta carries generation metadata alongside produced content.
type LLMMeta struct {
	Model       string
	TokensUsed  int64
	Temperature *float64
}

// NeedsPaidUpgrade reports whether attaching a purchase of the given type to
// this row must flip it to paid content with an expiry. True exactly when a
// free row (the moon funnel entry) meets its first paid purchase.
func (p *Prediction) NeedsPaidUpgrade(t PredictionType) bool {
	return t == PredictionTypePaid && p.PredictionType == PredictionTypeFree
}

// Text dereferences an optional content column, empty when unset.
func Text(col *string) string {
	if col == nil {
		return ""
	}
	return *col
}

// AnalysisFor returns the analysis text stored for the given planet.
func (p *Prediction) AnalysisFor(planet Planet) string {
	switch planet {
	case PlanetMoon:
		return Text(p.MoonAnalysis)
	case PlanetSun:
		return Text(p.SunAnalysis)
	case PlanetMercury:
		return Text(p.MercuryAnalysis)
	case PlanetVenus:
		return Text(p.VenusAnalysis)
	case PlanetMars:
		return Text(p.MarsAnalysis)
	}
	return ""
}

// AnalysisColumn maps a planet to its predictions column name.
func AnalysisColumn(planet Planet) string {
	switch planet {
	case PlanetMoon:
		return "moon_analysis"
	case PlanetSun:
		return "sun_analysis"
	case PlanetMercury:
		return "mercury_analysis"
	case PlanetVenus:
		return "venus_analysis"
	case PlanetMars:
		return "mars_analysis"
	}
	return ""
}
