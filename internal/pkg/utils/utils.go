package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"astrobot/internal/models"
)

// GenerateUUID generates a UUID v4 string, used for gateway idempotence keys.
func GenerateUUID() string {
	return uuid.New().String()
}

// ParseStartPayload extracts campaign attribution from a /start deep-link
// payload. Two formats are produced by the link generator:
//
//	ref_CODE                              referral code
//	source[_medium[_campaign[_content]]]  positional UTM parts
//
// An empty payload yields empty attribution.
func ParseStartPayload(payload string) models.Attribution {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return models.Attribution{}
	}

	if code, ok := strings.CutPrefix(payload, "ref_"); ok {
		return models.Attribution{ReferralCode: code}
	}

	parts := strings.Split(payload, "_")
	attr := models.Attribution{Source: parts[0]}
	if len(parts) > 1 {
		attr.Medium = parts[1]
	}
	if len(parts) > 2 {
		attr.Campaign = parts[2]
	}
	if len(parts) > 3 {
		attr.Content = strings.Join(parts[3:], "_")
	}
	return attr
}

// FormatKopecks renders a kopeck amount as the gateway's decimal ruble string.
func FormatKopecks(kopecks int64) string {
	return fmt.Sprintf("%d.%02d", kopecks/100, kopecks%100)
}

// FormatRubles renders a kopeck amount for user-facing messages: "10₽",
// "299.90₽".
func FormatRubles(kopecks int64) string {
	if kopecks%100 == 0 {
		return fmt.Sprintf("%d₽", kopecks/100)
	}
	return fmt.Sprintf("%d.%02d₽", kopecks/100, kopecks%100)
}

// DateOnly truncates a time to its calendar date in the given location.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
