package api

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"astrobot/internal/models"
)

// UserHandler exposes user lookup endpoints for support.
type UserHandler struct {
	repos  *Repos
	logger *zap.Logger
}

func NewUserHandler(repos *Repos, logger *zap.Logger) *UserHandler {
	return &UserHandler{repos: repos, logger: logger}
}

// List returns users with pagination and optional search.
// GET /api/users?limit=&page=&q=
func (h *UserHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 50)
	page := queryInt(c, "page", 1)
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if page <= 0 {
		page = 1
	}

	users, total, err := h.repos.User.FindAll(limit, page, c.QueryParam("q"))
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		return errorResponse(c, "Failed to retrieve users")
	}
	return successResponse(c, "Successful", paginatedResponse(users, total, page, limit))
}

// Get returns one user by telegram id, together with their payments and the
// state of their prediction row. One call answers "where is my report".
// GET /api/users/:telegram_id
func (h *UserHandler) Get(c echo.Context) error {
	telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		return errorResponse(c, "Invalid telegram id")
	}

	user, err := h.repos.User.FindByTelegramID(telegramID)
	if err != nil {
		return errorResponse(c, "User not found")
	}

	obj := map[string]interface{}{"user": user}

	if payments, err := h.repos.Payment.FindByUserID(user.UserID); err == nil {
		obj["payments"] = payments
	}
	if pred, err := h.repos.Prediction.FindLatestByUser(user.UserID); err == nil {
		obj["prediction"] = map[string]interface{}{
			"prediction_id":       pred.PredictionID,
			"has_moon":            pred.AnalysisFor(models.PlanetMoon) != "",
			"has_sun":             pred.AnalysisFor(models.PlanetSun) != "",
			"has_mercury":         pred.AnalysisFor(models.PlanetMercury) != "",
			"has_venus":           pred.AnalysisFor(models.PlanetVenus) != "",
			"has_mars":            pred.AnalysisFor(models.PlanetMars) != "",
			"has_recommendations": models.Text(pred.Recommendations) != "",
			"expires_at":          pred.ExpiresAt,
		}
	}
	if sub, err := h.repos.Subscription.FindActiveByUser(user.UserID); err == nil {
		obj["subscription"] = sub
	}

	return successResponse(c, "Successful", obj)
}
