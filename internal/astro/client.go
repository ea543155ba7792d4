package astro

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"astrobot/internal/config"
	"astrobot/internal/models"
	"astrobot/internal/pkg/httpclient"
)

const baseURL = "https://json.astrologyapi.com/v1"

// Client calls AstrologyAPI.com for chart calculations.
type Client struct {
	userID string
	client *httpclient.Client
}

// NewClient creates an AstrologyAPI client with basic auth.
func NewClient(cfg config.AstroConfig) *Client {
	return &Client{
		userID: cfg.UserID,
		client: httpclient.New().
			WithTimeout(60 * time.Second).
			WithBasicAuth(cfg.UserID, cfg.APIKey),
	}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.userID != ""
}

type chartRequest struct {
	Day   int     `json:"day"`
	Month int     `json:"month"`
	Year  int     `json:"year"`
	Hour  int     `json:"hour"`
	Min   int     `json:"min"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	TZone float64 `json:"tzone"`
}

func requestFor(u *models.User) (*chartRequest, error) {
	if !u.HasBirthProfile() {
		return nil, fmt.Errorf("user %d has no complete birth profile", u.UserID)
	}

	req := &chartRequest{
		Day:   u.BirthDate.Day(),
		Month: int(u.BirthDate.Month()),
		Year:  u.BirthDate.Year(),
		Lat:   *u.BirthLat,
		Lon:   *u.BirthLon,
	}

	if u.BirthTimeLocal != "" {
		if t, err := time.Parse("15:04", u.BirthTimeLocal); err == nil {
			req.Hour = t.Hour()
			req.Min = t.Minute()
		}
	}
	if u.TZID != "" {
		if loc, err := time.LoadLocation(u.TZID); err == nil {
			_, offset := time.Now().In(loc).Zone()
			req.TZone = float64(offset) / 3600
		}
	}
	return req, nil
}

// NatalChart fetches the western natal chart and returns it as a JSON blob
// for prompt building.
func (c *Client) NatalChart(ctx context.Context, u *models.User) (string, error) {
	return c.post(ctx, "/western_horoscope", u)
}

// DailyTransits fetches today's natal transits for the forecast prompt.
func (c *Client) DailyTransits(ctx context.Context, u *models.User) (string, error) {
	return c.post(ctx, "/natal_transits/daily", u)
}

func (c *Client) post(ctx context.Context, path string, u *models.User) (string, error) {
	req, err := requestFor(u)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Request().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(baseURL + path)
	if err != nil {
		return "", fmt.Errorf("astrology api %s failed: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("astrology api %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}

	// Validate and re-compact the JSON before it lands inside a prompt.
	var raw json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return "", fmt.Errorf("astrology api %s: bad response: %w", path, err)
	}
	return string(raw), nil
}

// ProfileSummary renders the birth profile as plain text. A fallback data
// block for prompts when the chart API is unavailable.
func ProfileSummary(u *models.User) string {
	var b strings.Builder
	if u.BirthDate != nil {
		fmt.Fprintf(&b, "Дата рождения: %s\n", u.BirthDate.Format("02.01.2006"))
	}
	if u.BirthTimeLocal != "" {
		fmt.Fprintf(&b, "Время рождения: %s\n", u.BirthTimeLocal)
	}
	if u.BirthPlaceName != "" {
		fmt.Fprintf(&b, "Место рождения: %s\n", u.BirthPlaceName)
	}
	if u.BirthLat != nil && u.BirthLon != nil {
		fmt.Fprintf(&b, "Координаты: %.4f, %.4f\n", *u.BirthLat, *u.BirthLon)
	}
	if u.ZodiacSign != "" {
		fmt.Fprintf(&b, "Знак зодиака: %s\n", u.ZodiacSign)
	}
	return b.String()
}

// ChartData returns the best available astrology data block for a user:
// the API chart when credentials are configured, otherwise the profile
// summary.
func (c *Client) ChartData(ctx context.Context, u *models.User) string {
	if c.Configured() {
		if chart, err := c.NatalChart(ctx, u); err == nil {
			return chart
		}
	}
	return ProfileSummary(u)
}
