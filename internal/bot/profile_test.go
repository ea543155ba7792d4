package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestZodiacSign(t *testing.T) {
	tests := []struct {
		month time.Month
		day   int
		want  string
	}{
		{time.March, 21, "aries"},
		{time.April, 19, "aries"},
		{time.April, 20, "taurus"},
		{time.June, 21, "cancer"},
		{time.August, 22, "leo"},
		{time.August, 23, "virgo"},
		{time.November, 21, "scorpio"},
		{time.December, 21, "sagittarius"},
		{time.December, 22, "capricorn"},
		{time.January, 19, "capricorn"},
		{time.January, 20, "aquarius"},
		{time.February, 19, "pisces"},
		{time.March, 20, "pisces"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, zodiacSign(tt.month, tt.day), "%v %d", tt.month, tt.day)
	}
}
