package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"astrobot/internal/models"
)

func TestPredictionTopic(t *testing.T) {
	assert.Equal(t, TopicMoonPredictions, PredictionTopic(models.PlanetMoon))
	assert.Equal(t, TopicSunPredictions, PredictionTopic(models.PlanetSun))
	assert.Equal(t, TopicMercuryPredictions, PredictionTopic(models.PlanetMercury))
	assert.Equal(t, TopicVenusPredictions, PredictionTopic(models.PlanetVenus))
	assert.Equal(t, TopicMarsPredictions, PredictionTopic(models.PlanetMars))
	assert.Equal(t, "", PredictionTopic(models.Planet("pluto")))
}

func TestValidTopic(t *testing.T) {
	for _, topic := range AllTopics() {
		assert.True(t, ValidTopic(topic), topic)
	}
	assert.False(t, ValidTopic(""))
	assert.False(t, ValidTopic("pluto_predictions"))
}

func TestAllTopicsComplete(t *testing.T) {
	topics := AllTopics()
	assert.Len(t, topics, 10)
	assert.Contains(t, topics, TopicSunRecommendations)
	assert.Contains(t, topics, TopicPersonalForecasts)
}
