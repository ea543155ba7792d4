package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlanet(t *testing.T) {
	for _, name := range []string{"moon", "sun", "mercury", "venus", "mars"} {
		planet, ok := ParsePlanet(name)
		assert.True(t, ok, name)
		assert.Equal(t, Planet(name), planet)
	}

	_, ok := ParsePlanet("pluto")
	assert.False(t, ok)
	_, ok = ParsePlanet("")
	assert.False(t, ok)
}

func TestPlanetIsPaid(t *testing.T) {
	assert.False(t, PlanetMoon.IsPaid())
	for _, planet := range PaidPlanetOrder {
		assert.True(t, planet.IsPaid(), string(planet))
	}
}

func TestPaidPlanetOrder(t *testing.T) {
	assert.Equal(t, []Planet{PlanetSun, PlanetMercury, PlanetVenus, PlanetMars}, PaidPlanetOrder)
}

func TestPaymentStatusGrants(t *testing.T) {
	granting := []PaymentStatus{
		PaymentStatusCompleted,
		PaymentStatusProcessing,
		PaymentStatusAnalysisFailed,
		PaymentStatusDelivered,
	}
	for _, s := range granting {
		assert.True(t, s.Grants(), string(s))
	}

	for _, s := range []PaymentStatus{PaymentStatusPending, PaymentStatusFailed, PaymentStatusRefunded} {
		assert.False(t, s.Grants(), string(s))
	}
}

func TestAnalysisColumn(t *testing.T) {
	assert.Equal(t, "moon_analysis", AnalysisColumn(PlanetMoon))
	assert.Equal(t, "mars_analysis", AnalysisColumn(PlanetMars))
	assert.Equal(t, "", AnalysisColumn(Planet("pluto")))
}

func TestPredictionAnalysisFor(t *testing.T) {
	moon, sun := "луна", "солнце"
	p := &Prediction{
		MoonAnalysis: &moon,
		SunAnalysis:  &sun,
	}
	assert.Equal(t, "луна", p.AnalysisFor(PlanetMoon))
	assert.Equal(t, "солнце", p.AnalysisFor(PlanetSun))
	assert.Equal(t, "", p.AnalysisFor(PlanetVenus))
}

func TestNeedsPaidUpgrade(t *testing.T) {
	free := &Prediction{PredictionType: PredictionTypeFree}
	paid := &Prediction{PredictionType: PredictionTypePaid}

	assert.True(t, free.NeedsPaidUpgrade(PredictionTypePaid))
	assert.False(t, free.NeedsPaidUpgrade(PredictionTypeFree))
	assert.False(t, paid.NeedsPaidUpgrade(PredictionTypePaid))
	assert.False(t, paid.NeedsPaidUpgrade(PredictionTypeFree))
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	empty := ""
	assert.Equal(t, "", Text(&empty))
	v := "готово"
	assert.Equal(t, "готово", Text(&v))
}

func TestPaymentCanRetry(t *testing.T) {
	p := &PlanetPayment{Status: PaymentStatusAnalysisFailed, RetryCount: 2}
	assert.True(t, p.CanRetry(3))
	assert.False(t, p.CanRetry(2))

	p.Status = PaymentStatusDelivered
	assert.False(t, p.CanRetry(3))
}
