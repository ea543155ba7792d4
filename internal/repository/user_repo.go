package repository

import (
	"time"

	"gorm.io/gorm"

	"astrobot/internal/models"
)

// UserRepository handles all user database operations.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindAll returns users with pagination and optional search.
func (r *UserRepository) FindAll(limit, page int, query string) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	db := r.db.Model(&models.User{}).Where("is_deleted = false")

	if query != "" {
		search := "%" + query + "%"
		db = db.Where("username ILIKE ? OR first_name ILIKE ? OR full_name ILIKE ?",
			search, search, search)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("joined_at DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// FindByTelegramID finds a user by Telegram chat ID.
func (r *UserRepository) FindByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	if err := r.db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUserID finds a user by internal ID.
func (r *UserRepository) FindByUserID(userID int64) (*models.User, error) {
	var user models.User
	if err := r.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Update updates user fields by Telegram ID.
func (r *UserRepository) Update(telegramID int64, updates map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("telegram_id = ?", telegramID).Updates(updates).Error
}

// UpdateStep updates the user's step field (frequently used in bot flow).
func (r *UserRepository) UpdateStep(telegramID int64, step string) error {
	return r.db.Model(&models.User{}).Where("telegram_id = ?", telegramID).Update("step", step).Error
}

// Touch refreshes last_seen_at.
func (r *UserRepository) Touch(telegramID int64) error {
	return r.db.Model(&models.User{}).Where("telegram_id = ?", telegramID).
		Update("last_seen_at", time.Now()).Error
}

// SetAttribution stores first-contact campaign attribution. Sticky: rows that
// already carry attribution are left untouched.
func (r *UserRepository) SetAttribution(telegramID int64, attr models.Attribution) error {
	if attr.Empty() {
		return nil
	}
	return r.db.Model(&models.User{}).
		Where("telegram_id = ? AND attributed_at IS NULL", telegramID).
		Updates(map[string]interface{}{
			"utm_source":    attr.Source,
			"utm_medium":    attr.Medium,
			"utm_campaign":  attr.Campaign,
			"utm_content":   attr.Content,
			"referral_code": attr.ReferralCode,
			"attributed_at": time.Now(),
		}).Error
}
