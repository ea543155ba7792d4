package models

import "time"

// PlanetPayment maps to the `planet_payments` table. One row per purchase
// attempt. Check constraints in bootstrap enforce: planet is non-null iff
// payment_type is single_planet, amount_kopecks is positive, and a completed
// row always carries completed_at.
type PlanetPayment struct {
	PaymentID   int64         `gorm:"column:payment_id;primaryKey;autoIncrement" json:"payment_id"`
	UserID      int64         `gorm:"column:user_id;not null;index:planet_payments_user_id_idx" json:"user_id"`
	PaymentType PaymentType   `gorm:"column:payment_type;type:text;not null;index:planet_payments_type_idx" json:"payment_type"`
	Planet      *Planet       `gorm:"column:planet;type:text;index:planet_payments_planet_idx" json:"planet"`
	Status      PaymentStatus `gorm:"column:status;type:text;not null;default:pending;index:planet_payments_status_idx" json:"status"`

	AmountKopecks int64 `gorm:"column:amount_kopecks;not null" json:"amount_kopecks"`

	// Gateway linkage
	ExternalPaymentID string `gorm:"column:external_payment_id;index:planet_payments_external_id_idx" json:"external_payment_id"`
	PaymentURL        string `gorm:"column:payment_url" json:"payment_url"`

	CreatedAt   time.Time  `gorm:"column:created_at;not null;autoCreateTime;index:planet_payments_created_at_idx,sort:desc" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at"`

	// Analysis pipeline tracking
	AnalysisStartedAt   *time.Time `gorm:"column:analysis_started_at" json:"analysis_started_at"`
	AnalysisCompletedAt *time.Time `gorm:"column:analysis_completed_at" json:"analysis_completed_at"`
	DeliveredAt         *time.Time `gorm:"column:delivered_at" json:"delivered_at"`
	RetryCount          int64      `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	LastError           string     `gorm:"column:last_error" json:"last_error"`

	Notes string `gorm:"column:notes" json:"notes"`
}

func (PlanetPayment) TableName() string {
	return "planet_payments"
}

// PlanetOrDefault returns the purchased planet, or empty for a bundle.
func (p *PlanetPayment) PlanetOrDefault() Planet {
	if p.Planet != nil {
		return *p.Planet
	}
	return ""
}

// CanRetry reports whether a failed analysis may be re-enqueued.
func (p *PlanetPayment) CanRetry(maxRetries int64) bool {
	return p.Status == PaymentStatusAnalysisFailed && p.RetryCount < maxRetries
}
