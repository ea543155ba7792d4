package bootstrap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constraintExpr(t *testing.T, name string) string {
	t.Helper()
	for _, c := range constraints() {
		if c.name == name {
			return c.expr
		}
	}
	t.Fatalf("constraint %s not defined", name)
	return ""
}

func TestContentConstraintCoversEveryColumn(t *testing.T) {
	expr := constraintExpr(t, "at_least_one_content_type")

	// The columns are nullable, so IS NOT NULL is what makes the check
	// bite; a row seeded with raw chart data in `content` passes.
	for _, col := range []string{
		"content", "moon_analysis", "sun_analysis", "mercury_analysis",
		"venus_analysis", "mars_analysis", "recommendations",
		"question", "answer", "qa_responses",
	} {
		assert.Contains(t, expr, col+" IS NOT NULL", col)
	}
}

func TestPaymentConstraintsDefined(t *testing.T) {
	assert.Contains(t, constraintExpr(t, "single_planet_must_have_planet"), "planet IS NOT NULL")
	assert.Contains(t, constraintExpr(t, "completed_must_have_completion_time"), "completed_at IS NOT NULL")
	assert.Equal(t, "amount_kopecks > 0", constraintExpr(t, "amount_positive"))
}

func TestPredictionConstraintsDefined(t *testing.T) {
	assert.Contains(t, constraintExpr(t, "moon_only_free"), "prediction_type = 'free'")
	assert.Contains(t, constraintExpr(t, "paid_predictions_must_expire"), "expires_at IS NOT NULL")
	assert.Contains(t, constraintExpr(t, "temperature_range_valid"), "llm_temperature IS NULL")
}

func TestConstraintNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range constraints() {
		key := c.table + "." + c.name
		require.False(t, seen[key], key)
		seen[key] = true
		assert.False(t, strings.Contains(c.name, " "))
	}
}
