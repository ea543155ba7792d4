package queue

import "astrobot/internal/models"

// Topic names, one per worker in the fleet. Each long-running worker process
// consumes exactly one of these.
const (
	TopicMoonPredictions    = "moon_predictions"
	TopicSunPredictions     = "sun_predictions"
	TopicMercuryPredictions = "mercury_predictions"
	TopicVenusPredictions   = "venus_predictions"
	TopicMarsPredictions    = "mars_predictions"
	TopicRecommendations    = "recommendations"
	TopicSunRecommendations = "sun_recommendations"
	TopicQuestions          = "questions"
	TopicSunQuestions       = "sun_questions"
	TopicPersonalForecasts  = "personal_forecasts"
)

// AllTopics lists every queue the fleet consumes.
func AllTopics() []string {
	return []string{
		TopicMoonPredictions,
		TopicSunPredictions,
		TopicMercuryPredictions,
		TopicVenusPredictions,
		TopicMarsPredictions,
		TopicRecommendations,
		TopicSunRecommendations,
		TopicQuestions,
		TopicSunQuestions,
		TopicPersonalForecasts,
	}
}

// PredictionTopic maps a planet to its analysis topic.
func PredictionTopic(planet models.Planet) string {
	switch planet {
	case models.PlanetMoon:
		return TopicMoonPredictions
	case models.PlanetSun:
		return TopicSunPredictions
	case models.PlanetMercury:
		return TopicMercuryPredictions
	case models.PlanetVenus:
		return TopicVenusPredictions
	case models.PlanetMars:
		return TopicMarsPredictions
	}
	return ""
}

// ValidTopic reports whether name is a known queue topic.
func ValidTopic(name string) bool {
	for _, t := range AllTopics() {
		if t == name {
			return true
		}
	}
	return false
}
