package models

// Planet identifies which natal chart body an analysis covers.
type Planet string

const (
	PlanetMoon    Planet = "moon" // free analysis
	PlanetSun     Planet = "sun"
	PlanetMercury Planet = "mercury"
	PlanetVenus   Planet = "venus"
	PlanetMars    Planet = "mars"
)

// PaidPlanetOrder is the delivery order for an all-planets purchase.
var PaidPlanetOrder = []Planet{PlanetSun, PlanetMercury, PlanetVenus, PlanetMars}

// ParsePlanet returns the Planet for a raw string, false when unknown.
func ParsePlanet(s string) (Planet, bool) {
	switch Planet(s) {
	case PlanetMoon, PlanetSun, PlanetMercury, PlanetVenus, PlanetMars:
		return Planet(s), true
	}
	return "", false
}

// IsPaid reports whether the planet requires a completed payment.
func (p Planet) IsPaid() bool {
	return p != PlanetMoon
}

// RussianName returns the user-facing planet name.
func (p Planet) RussianName() string {
	switch p {
	case PlanetMoon:
		return "Луна"
	case PlanetSun:
		return "Солнце"
	case PlanetMercury:
		return "Меркурий"
	case PlanetVenus:
		return "Венера"
	case PlanetMars:
		return "Марс"
	}
	return string(p)
}

// Emoji returns the planet's button emoji.
func (p Planet) Emoji() string {
	switch p {
	case PlanetMoon:
		return "🌙"
	case PlanetSun:
		return "☀️"
	case PlanetMercury:
		return "☿️"
	case PlanetVenus:
		return "♀️"
	case PlanetMars:
		return "♂️"
	}
	return ""
}

// PaymentType distinguishes a single-planet purchase from the bundle.
type PaymentType string

const (
	PaymentTypeSinglePlanet PaymentType = "single_planet"
	PaymentTypeAllPlanets   PaymentType = "all_planets"
)

// PaymentStatus is the lifecycle of a purchase attempt.
//
// pending -> completed -> processing -> delivered
// pending -> failed
// completed/processing -> analysis_failed -> processing (retry)
// completed -> refunded
type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusCompleted      PaymentStatus = "completed"
	PaymentStatusFailed         PaymentStatus = "failed"
	PaymentStatusRefunded       PaymentStatus = "refunded"
	PaymentStatusProcessing     PaymentStatus = "processing"
	PaymentStatusAnalysisFailed PaymentStatus = "analysis_failed"
	PaymentStatusDelivered      PaymentStatus = "delivered"
)

// Grants reports whether the status gives the user access to paid content.
func (s PaymentStatus) Grants() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusProcessing,
		PaymentStatusAnalysisFailed, PaymentStatusDelivered:
		return true
	}
	return false
}

// PredictionType marks whether the prediction content required payment.
type PredictionType string

const (
	PredictionTypeFree PredictionType = "free"
	PredictionTypePaid PredictionType = "paid"
)

// Gender as stored on the user profile.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)
