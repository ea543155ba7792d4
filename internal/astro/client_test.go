package astro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrobot/internal/models"
)

func profileUser() *models.User {
	birth := time.Date(1990, 3, 21, 0, 0, 0, 0, time.UTC)
	lat, lon := 55.7558, 37.6173
	return &models.User{
		UserID:         1,
		BirthDate:      &birth,
		BirthTimeLocal: "14:30",
		BirthPlaceName: "Москва, Россия",
		BirthLat:       &lat,
		BirthLon:       &lon,
		ZodiacSign:     "aries",
	}
}

func TestRequestFor(t *testing.T) {
	req, err := requestFor(profileUser())
	require.NoError(t, err)

	assert.Equal(t, 21, req.Day)
	assert.Equal(t, 3, req.Month)
	assert.Equal(t, 1990, req.Year)
	assert.Equal(t, 14, req.Hour)
	assert.Equal(t, 30, req.Min)
	assert.Equal(t, 55.7558, req.Lat)
	assert.Equal(t, 37.6173, req.Lon)
}

func TestRequestForIncompleteProfile(t *testing.T) {
	_, err := requestFor(&models.User{UserID: 2})
	assert.Error(t, err)
}

func TestProfileSummary(t *testing.T) {
	summary := ProfileSummary(profileUser())

	assert.Contains(t, summary, "21.03.1990")
	assert.Contains(t, summary, "14:30")
	assert.Contains(t, summary, "Москва")
	assert.Contains(t, summary, "aries")
}

func TestProfileSummaryEmptyUser(t *testing.T) {
	assert.Empty(t, ProfileSummary(&models.User{}))
}

func TestConfigured(t *testing.T) {
	assert.False(t, (&Client{}).Configured())
	assert.True(t, (&Client{userID: "u"}).Configured())
}
