package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"astrobot/internal/models"
)

// SubscriptionRepository handles subscriptions and subscription_payments.
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindActiveByUser returns the user's freshest active subscription.
func (r *SubscriptionRepository) FindActiveByUser(userID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ? AND is_active = true AND end_date > ?", userID, time.Now()).
		Order("end_date DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateOrExtend creates a subscription or extends the active one. Extension
// counts from the current end date when it lies in the future.
func (r *SubscriptionRepository) CreateOrExtend(userID int64, durationMonths int) (*models.Subscription, error) {
	now := time.Now()

	existing, err := r.FindActiveByUser(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing != nil {
		start := now
		if existing.EndDate.After(now) {
			start = existing.EndDate
		}
		existing.EndDate = start.AddDate(0, durationMonths, 0)
		existing.IsActive = true
		if err := r.db.Save(existing).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}

	sub := &models.Subscription{
		UserID:    userID,
		StartDate: now,
		EndDate:   now.AddDate(0, durationMonths, 0),
		IsActive:  true,
	}
	if err := r.db.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// DeactivateExpired flips is_active off for subscriptions past end_date.
// Returns the number of rows affected.
func (r *SubscriptionRepository) DeactivateExpired() (int64, error) {
	res := r.db.Model(&models.Subscription{}).
		Where("is_active = true AND end_date <= ?", time.Now()).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// FindActiveSubscriberIDs lists user ids with a live subscription, for the
// daily forecast fan-out.
func (r *SubscriptionRepository) FindActiveSubscriberIDs() ([]int64, error) {
	var ids []int64
	err := r.db.Model(&models.Subscription{}).
		Where("is_active = true AND end_date > ?", time.Now()).
		Distinct().Pluck("user_id", &ids).Error
	return ids, err
}

// CreatePayment inserts a pending subscription payment.
func (r *SubscriptionRepository) CreatePayment(p *models.SubscriptionPayment) error {
	return r.db.Create(p).Error
}

// UpdatePayment applies arbitrary column updates to a subscription payment.
func (r *SubscriptionRepository) UpdatePayment(paymentID int64, updates map[string]interface{}) error {
	return r.db.Model(&models.SubscriptionPayment{}).
		Where("payment_id = ?", paymentID).
		Updates(updates).Error
}

// FindPaymentByExternalID returns a subscription payment by gateway id.
func (r *SubscriptionRepository) FindPaymentByExternalID(externalID string) (*models.SubscriptionPayment, error) {
	var p models.SubscriptionPayment
	if err := r.db.Where("external_payment_id = ?", externalID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkPaymentCompleted flips a pending subscription payment to completed and
// links it to the subscription it paid for. Idempotent via the pending guard.
func (r *SubscriptionRepository) MarkPaymentCompleted(paymentID, subscriptionID int64) error {
	res := r.db.Model(&models.SubscriptionPayment{}).
		Where("payment_id = ? AND status = ?", paymentID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":          models.PaymentStatusCompleted,
			"completed_at":    time.Now(),
			"subscription_id": subscriptionID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoTransition
	}
	return nil
}
