package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"astrobot/internal/models"
)

func TestParseStartPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    models.Attribution
	}{
		{
			name:    "empty",
			payload: "",
			want:    models.Attribution{},
		},
		{
			name:    "whitespace only",
			payload: "   ",
			want:    models.Attribution{},
		},
		{
			name:    "referral code",
			payload: "ref_BLOGGER42",
			want:    models.Attribution{ReferralCode: "BLOGGER42"},
		},
		{
			name:    "source only",
			payload: "instagram",
			want:    models.Attribution{Source: "instagram"},
		},
		{
			name:    "source and medium",
			payload: "instagram_stories",
			want:    models.Attribution{Source: "instagram", Medium: "stories"},
		},
		{
			name:    "full utm",
			payload: "instagram_stories_spring_promo",
			want: models.Attribution{
				Source:   "instagram",
				Medium:   "stories",
				Campaign: "spring",
				Content:  "promo",
			},
		},
		{
			name:    "content keeps extra underscores",
			payload: "vk_ads_launch_creative_a_v2",
			want: models.Attribution{
				Source:   "vk",
				Medium:   "ads",
				Campaign: "launch",
				Content:  "creative_a_v2",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStartPayload(tt.payload))
		})
	}
}

func TestParseStartPayloadEmptyDetection(t *testing.T) {
	assert.True(t, ParseStartPayload("").Empty())
	assert.False(t, ParseStartPayload("ref_X").Empty())
	assert.False(t, ParseStartPayload("telegram").Empty())
}

func TestFormatKopecks(t *testing.T) {
	assert.Equal(t, "10.00", FormatKopecks(1000))
	assert.Equal(t, "0.05", FormatKopecks(5))
	assert.Equal(t, "299.90", FormatKopecks(29990))
	assert.Equal(t, "222.00", FormatKopecks(22200))
}

func TestFormatRubles(t *testing.T) {
	assert.Equal(t, "10₽", FormatRubles(1000))
	assert.Equal(t, "299.90₽", FormatRubles(29990))
	assert.Equal(t, "500₽", FormatRubles(50000))
}

func TestDateOnly(t *testing.T) {
	ts := time.Date(2025, 3, 21, 23, 59, 59, 0, time.UTC)
	got := DateOnly(ts, nil)
	assert.Equal(t, time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), got)
}

func TestGenerateUUID(t *testing.T) {
	a := GenerateUUID()
	b := GenerateUUID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
