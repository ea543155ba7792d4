package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrobot/internal/config"
)

func testGeocoder(t *testing.T, handler http.HandlerFunc) *Geocoder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGeocoder(config.GeocoderConfig{
		BaseURL:   srv.URL,
		UserAgent: "astrobot-test/1.0",
	})
}

func TestGeocodeCity(t *testing.T) {
	g := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Казань", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "astrobot-test/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"display_name": "Казань, Татарстан, Россия",
			"lat": "55.7963",
			"lon": "49.1088",
			"address": {"country_code": "ru"}
		}]`))
	})

	res, err := g.GeocodeCity(context.Background(), "Казань")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Казань, Татарстан, Россия", res.PlaceName)
	assert.Equal(t, "ru", res.CountryCode)
	assert.InDelta(t, 55.7963, res.Lat, 0.0001)
	assert.InDelta(t, 49.1088, res.Lon, 0.0001)
}

func TestGeocodeCityNoResults(t *testing.T) {
	g := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})

	res, err := g.GeocodeCity(context.Background(), "Нигденеленд")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestGeocodeCityServerError(t *testing.T) {
	g := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := g.GeocodeCity(context.Background(), "Казань")
	assert.Error(t, err)
}

func TestGeocodeCityBadCoordinates(t *testing.T) {
	g := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"display_name": "x", "lat": "not-a-number", "lon": "49"}]`))
	})

	_, err := g.GeocodeCity(context.Background(), "x")
	assert.Error(t, err)
}
