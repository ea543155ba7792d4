package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"astrobot/internal/config"
	"astrobot/internal/pkg/httpclient"
)

// Result is one geocoded place.
type Result struct {
	PlaceName   string
	CountryCode string
	Lat         float64
	Lon         float64
}

// Geocoder resolves birth city names to coordinates via Nominatim.
type Geocoder struct {
	baseURL string
	client  *httpclient.Client
}

// NewGeocoder creates a Nominatim geocoder. Nominatim's usage policy
// requires an identifying User-Agent with contact details.
func NewGeocoder(cfg config.GeocoderConfig) *Geocoder {
	return &Geocoder{
		baseURL: cfg.BaseURL,
		client: httpclient.New().
			WithTimeout(8 * time.Second).
			WithHeader("User-Agent", cfg.UserAgent),
	}
}

type nominatimItem struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// GeocodeCity returns the first match for a city name, nil when nothing was
// found.
func (g *Geocoder) GeocodeCity(ctx context.Context, query string) (*Result, error) {
	resp, err := g.client.Request().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":               query,
			"format":          "jsonv2",
			"addressdetails":  "1",
			"limit":           "1",
			"accept-language": "ru",
		}).
		Get(g.baseURL)
	if err != nil {
		return nil, fmt.Errorf("geocoder request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("geocoder: status %d: %s", resp.StatusCode(), resp.String())
	}

	var items []nominatimItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("geocoder: bad payload: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	item := items[0]
	lat, err := strconv.ParseFloat(item.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocoder: bad latitude %q", item.Lat)
	}
	lon, err := strconv.ParseFloat(item.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocoder: bad longitude %q", item.Lon)
	}

	name := item.DisplayName
	if name == "" {
		name = query
	}
	return &Result{
		PlaceName:   name,
		CountryCode: item.Address.CountryCode,
		Lat:         lat,
		Lon:         lon,
	}, nil
}
