package models

import "time"

// User maps to the `users` table. One row per Telegram user.
type User struct {
	UserID     int64  `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	TelegramID int64  `gorm:"column:telegram_id;uniqueIndex;not null" json:"telegram_id"`
	Username   string `gorm:"column:username" json:"username"`
	FirstName  string `gorm:"column:first_name" json:"first_name"`
	LastName   string `gorm:"column:last_name" json:"last_name"`
	Lang       string `gorm:"column:lang;default:ru" json:"lang"`

	JoinedAt       time.Time  `gorm:"column:joined_at;not null;autoCreateTime" json:"joined_at"`
	LastSeenAt     *time.Time `gorm:"column:last_seen_at;index:users_last_seen_idx,sort:desc" json:"last_seen_at"`
	ConsentGivenAt *time.Time `gorm:"column:consent_given_at" json:"consent_given_at"`

	// Birth profile for chart calculation
	FullName          string     `gorm:"column:full_name" json:"full_name"`
	Gender            Gender     `gorm:"column:gender;type:text;default:unknown;not null" json:"gender"`
	BirthDate         *time.Time `gorm:"column:birth_date;type:date" json:"birth_date"`
	BirthTimeLocal    string     `gorm:"column:birth_time_local" json:"birth_time_local"`
	BirthTimeAccuracy string     `gorm:"column:birth_time_accuracy;default:exact;not null" json:"birth_time_accuracy"`
	BirthCityInput    string     `gorm:"column:birth_city_input" json:"birth_city_input"`
	BirthPlaceName    string     `gorm:"column:birth_place_name" json:"birth_place_name"`
	BirthCountryCode  string     `gorm:"column:birth_country_code" json:"birth_country_code"`
	BirthLat          *float64   `gorm:"column:birth_lat" json:"birth_lat"`
	BirthLon          *float64   `gorm:"column:birth_lon" json:"birth_lon"`
	TZID              string     `gorm:"column:tzid" json:"tzid"`
	BirthDatetimeUTC  *time.Time `gorm:"column:birth_datetime_utc;index:users_birth_utc_idx" json:"birth_datetime_utc"`
	ZodiacSign        string     `gorm:"column:zodiac_sign;index:users_zodiac_idx" json:"zodiac_sign"`

	// Campaign attribution. Written once at first contact, never overwritten.
	UTMSource    string     `gorm:"column:utm_source" json:"utm_source"`
	UTMMedium    string     `gorm:"column:utm_medium" json:"utm_medium"`
	UTMCampaign  string     `gorm:"column:utm_campaign" json:"utm_campaign"`
	UTMContent   string     `gorm:"column:utm_content" json:"utm_content"`
	ReferralCode string     `gorm:"column:referral_code" json:"referral_code"`
	AttributedAt *time.Time `gorm:"column:attributed_at" json:"attributed_at"`

	// Bot conversation state for step routing
	Step string `gorm:"column:step;default:none" json:"step"`

	IsDeleted bool   `gorm:"column:is_deleted;not null;default:false" json:"is_deleted"`
	Notes     string `gorm:"column:notes" json:"notes"`
}

func (User) TableName() string {
	return "users"
}

// Attribution is the campaign data parsed from a /start deep-link payload.
type Attribution struct {
	Source       string
	Medium       string
	Campaign     string
	Content      string
	ReferralCode string
}

// Empty reports whether no attribution field is set.
func (a Attribution) Empty() bool {
	return a.Source == "" && a.Medium == "" && a.Campaign == "" &&
		a.Content == "" && a.ReferralCode == ""
}

// HasAttribution reports whether first-contact attribution was already captured.
func (u *User) HasAttribution() bool {
	return u.AttributedAt != nil
}

// HasBirthProfile reports whether the profile is complete enough to build a chart.
func (u *User) HasBirthProfile() bool {
	return u.BirthDate != nil && u.BirthLat != nil && u.BirthLon != nil
}
