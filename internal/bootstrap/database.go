package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"astrobot/internal/models"
)

// Migrate ensures all tables exist and applies the check constraints the
// schema relies on. AutoMigrate handles columns and indexes; the constraints
// are raw DDL because GORM does not express them.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := applyCheckConstraints(db); err != nil {
		return fmt.Errorf("apply check constraints failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Prediction{},
		&models.PlanetPayment{},
		&models.Subscription{},
		&models.SubscriptionPayment{},
		&models.DailyForecast{},
	}
}

type checkConstraint struct {
	table string
	name  string
	expr  string
}

func constraints() []checkConstraint {
	return []checkConstraint{
		{
			table: "planet_payments",
			name:  "single_planet_must_have_planet",
			expr: "(payment_type = 'all_planets') OR " +
				"(payment_type = 'single_planet' AND planet IS NOT NULL)",
		},
		{
			table: "planet_payments",
			name:  "amount_positive",
			expr:  "amount_kopecks > 0",
		},
		{
			table: "planet_payments",
			name:  "completed_must_have_completion_time",
			expr: "(status != 'completed') OR " +
				"(status = 'completed' AND completed_at IS NOT NULL)",
		},
		{
			table: "predictions",
			name:  "moon_only_free",
			expr: "(planet != 'moon') OR " +
				"(planet = 'moon' AND prediction_type = 'free')",
		},
		{
			table: "predictions",
			name:  "paid_predictions_must_expire",
			expr: "(prediction_type = 'free') OR " +
				"(prediction_type = 'paid' AND expires_at IS NOT NULL)",
		},
		{
			table: "predictions",
			name:  "at_least_one_content_type",
			expr: "content IS NOT NULL OR moon_analysis IS NOT NULL OR " +
				"sun_analysis IS NOT NULL OR mercury_analysis IS NOT NULL OR " +
				"venus_analysis IS NOT NULL OR mars_analysis IS NOT NULL OR " +
				"recommendations IS NOT NULL OR question IS NOT NULL OR " +
				"answer IS NOT NULL OR qa_responses IS NOT NULL",
		},
		{
			table: "predictions",
			name:  "temperature_range_valid",
			expr: "llm_temperature IS NULL OR " +
				"(llm_temperature >= 0.0 AND llm_temperature <= 2.0)",
		},
		{
			table: "subscription_payments",
			name:  "sub_amount_positive",
			expr:  "amount_kopecks > 0",
		},
		{
			table: "subscription_payments",
			name:  "sub_completed_must_have_completion_time",
			expr: "(status != 'completed') OR " +
				"(status = 'completed' AND completed_at IS NOT NULL)",
		},
	}
}

func applyCheckConstraints(db *gorm.DB) error {
	for _, c := range constraints() {
		// Drop-then-add keeps the definition current across releases.
		drop := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", c.table, c.name)
		if err := db.Exec(drop).Error; err != nil {
			return fmt.Errorf("drop constraint %s: %w", c.name, err)
		}
		add := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", c.table, c.name, c.expr)
		if err := db.Exec(add).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}
	return nil
}
