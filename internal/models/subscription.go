package models

import "time"

// Subscription maps to the `subscriptions` table. Grants daily personal
// forecasts while active and not past end_date.
type Subscription struct {
	SubscriptionID int64     `gorm:"column:subscription_id;primaryKey;autoIncrement" json:"subscription_id"`
	UserID         int64     `gorm:"column:user_id;not null;index:subscriptions_user_id_idx" json:"user_id"`
	StartDate      time.Time `gorm:"column:start_date;not null" json:"start_date"`
	EndDate        time.Time `gorm:"column:end_date;not null;index:subscriptions_end_date_idx" json:"end_date"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true;index:subscriptions_active_idx" json:"is_active"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// ActiveAt reports whether the subscription covers the given moment.
func (s *Subscription) ActiveAt(t time.Time) bool {
	return s.IsActive && s.EndDate.After(t)
}

// SubscriptionPayment maps to the `subscription_payments` table. Same
// status/ownership pattern as planet_payments.
type SubscriptionPayment struct {
	PaymentID      int64         `gorm:"column:payment_id;primaryKey;autoIncrement" json:"payment_id"`
	UserID         int64         `gorm:"column:user_id;not null;index:subscription_payments_user_id_idx" json:"user_id"`
	SubscriptionID *int64        `gorm:"column:subscription_id" json:"subscription_id"`
	Status         PaymentStatus `gorm:"column:status;type:text;not null;default:pending;index:subscription_payments_status_idx" json:"status"`
	AmountKopecks  int64         `gorm:"column:amount_kopecks;not null" json:"amount_kopecks"`
	DurationMonths int           `gorm:"column:duration_months;not null;default:1" json:"duration_months"`

	ExternalPaymentID string `gorm:"column:external_payment_id;index:subscription_payments_external_id_idx" json:"external_payment_id"`
	PaymentURL        string `gorm:"column:payment_url" json:"payment_url"`

	CreatedAt   time.Time  `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at"`
}

func (SubscriptionPayment) TableName() string {
	return "subscription_payments"
}
