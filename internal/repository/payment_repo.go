package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"astrobot/internal/models"
)

// ErrNoTransition is returned when a status update matched no row, either
// because the payment does not exist or because it already left the expected
// state. Callers treat it as "someone else got here first".
var ErrNoTransition = errors.New("payment status transition matched no row")

// PaymentRepository handles planet_payments database operations.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment row.
func (r *PaymentRepository) Create(payment *models.PlanetPayment) error {
	return r.db.Create(payment).Error
}

// Update applies arbitrary column updates to a payment row.
func (r *PaymentRepository) Update(paymentID int64, updates map[string]interface{}) error {
	return r.db.Model(&models.PlanetPayment{}).
		Where("payment_id = ?", paymentID).
		Updates(updates).Error
}

// FindByID returns a payment by primary key.
func (r *PaymentRepository) FindByID(paymentID int64) (*models.PlanetPayment, error) {
	var payment models.PlanetPayment
	if err := r.db.Where("payment_id = ?", paymentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByExternalID returns a payment by the gateway's payment id.
func (r *PaymentRepository) FindByExternalID(externalID string) (*models.PlanetPayment, error) {
	var payment models.PlanetPayment
	if err := r.db.Where("external_payment_id = ?", externalID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByUserID returns payments for a user, newest first.
func (r *PaymentRepository) FindByUserID(userID int64) ([]models.PlanetPayment, error) {
	var payments []models.PlanetPayment
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// FindGranting returns the newest payment that grants the user access to the
// planet: either a single-planet purchase for it or an all-planets bundle.
// Bundle wins when both exist.
func (r *PaymentRepository) FindGranting(userID int64, planet models.Planet) (*models.PlanetPayment, error) {
	granting := []models.PaymentStatus{
		models.PaymentStatusCompleted,
		models.PaymentStatusProcessing,
		models.PaymentStatusAnalysisFailed,
		models.PaymentStatusDelivered,
	}

	var bundle models.PlanetPayment
	err := r.db.Where("user_id = ? AND payment_type = ? AND status IN ?",
		userID, models.PaymentTypeAllPlanets, granting).
		Order("created_at DESC").First(&bundle).Error
	if err == nil {
		return &bundle, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var single models.PlanetPayment
	err = r.db.Where("user_id = ? AND payment_type = ? AND planet = ? AND status IN ?",
		userID, models.PaymentTypeSinglePlanet, planet, granting).
		Order("created_at DESC").First(&single).Error
	if err != nil {
		return nil, err
	}
	return &single, nil
}

// MarkCompleted flips a pending payment to completed. Idempotent: a second
// webhook delivery finds no pending row and gets ErrNoTransition.
func (r *PaymentRepository) MarkCompleted(paymentID int64) error {
	return r.transition(paymentID,
		[]models.PaymentStatus{models.PaymentStatusPending},
		map[string]interface{}{
			"status":       models.PaymentStatusCompleted,
			"completed_at": time.Now(),
		})
}

// MarkFailed records a gateway-side failure or cancellation.
func (r *PaymentRepository) MarkFailed(paymentID int64, reason string) error {
	return r.transition(paymentID,
		[]models.PaymentStatus{models.PaymentStatusPending},
		map[string]interface{}{
			"status":     models.PaymentStatusFailed,
			"last_error": reason,
		})
}

// MarkRefunded records a refund reported by the gateway.
func (r *PaymentRepository) MarkRefunded(paymentID int64) error {
	return r.transition(paymentID,
		[]models.PaymentStatus{
			models.PaymentStatusCompleted,
			models.PaymentStatusProcessing,
			models.PaymentStatusAnalysisFailed,
			models.PaymentStatusDelivered,
		},
		map[string]interface{}{
			"status": models.PaymentStatusRefunded,
		})
}

// MarkProcessing records that analysis work started for the payment.
func (r *PaymentRepository) MarkProcessing(paymentID int64) error {
	return r.transition(paymentID,
		[]models.PaymentStatus{
			models.PaymentStatusCompleted,
			models.PaymentStatusAnalysisFailed,
			models.PaymentStatusProcessing,
		},
		map[string]interface{}{
			"status":              models.PaymentStatusProcessing,
			"analysis_started_at": time.Now(),
		})
}

// MarkAnalysisCompleted records that the LLM produced a result.
func (r *PaymentRepository) MarkAnalysisCompleted(paymentID int64) error {
	return r.db.Model(&models.PlanetPayment{}).
		Where("payment_id = ?", paymentID).
		Update("analysis_completed_at", time.Now()).Error
}

// MarkDelivered records successful delivery to the user.
func (r *PaymentRepository) MarkDelivered(paymentID int64) error {
	return r.transition(paymentID,
		[]models.PaymentStatus{models.PaymentStatusProcessing},
		map[string]interface{}{
			"status":       models.PaymentStatusDelivered,
			"delivered_at": time.Now(),
		})
}

// MarkAnalysisFailed records a processing failure and bumps the retry counter.
func (r *PaymentRepository) MarkAnalysisFailed(paymentID int64, cause string) error {
	return r.db.Model(&models.PlanetPayment{}).
		Where("payment_id = ?", paymentID).
		Updates(map[string]interface{}{
			"status":      models.PaymentStatusAnalysisFailed,
			"last_error":  cause,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}

func (r *PaymentRepository) transition(paymentID int64, from []models.PaymentStatus, updates map[string]interface{}) error {
	res := r.db.Model(&models.PlanetPayment{}).
		Where("payment_id = ? AND status IN ?", paymentID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoTransition
	}
	return nil
}

// FindAnalysisFailed lists payments eligible for a retry pass.
func (r *PaymentRepository) FindAnalysisFailed(limit int, maxRetries int64) ([]models.PlanetPayment, error) {
	if limit <= 0 {
		limit = 20
	}
	var payments []models.PlanetPayment
	err := r.db.Where("status = ? AND retry_count < ?",
		models.PaymentStatusAnalysisFailed, maxRetries).
		Order("created_at ASC").Limit(limit).Find(&payments).Error
	return payments, err
}

// FindStuckProcessing lists payments that started analysis before the cutoff
// and never finished. The cron sweep flags them analysis_failed.
func (r *PaymentRepository) FindStuckProcessing(cutoff time.Time) ([]models.PlanetPayment, error) {
	var payments []models.PlanetPayment
	err := r.db.Where("status = ? AND analysis_started_at < ?",
		models.PaymentStatusProcessing, cutoff).
		Find(&payments).Error
	return payments, err
}

// CountByStatus returns the per-status row counts, the first thing support
// looks at when deliveries stall.
func (r *PaymentRepository) CountByStatus() (map[models.PaymentStatus]int64, error) {
	type row struct {
		Status models.PaymentStatus
		N      int64
	}
	var rows []row
	err := r.db.Model(&models.PlanetPayment{}).
		Select("status, COUNT(*) AS n").
		Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.PaymentStatus]int64, len(rows))
	for _, rw := range rows {
		out[rw.Status] = rw.N
	}
	return out, nil
}
