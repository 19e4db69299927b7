package routes

import (
	"net/http"

	"github.com/opslens/opslens/internal/server/middleware"
	"github.com/opslens/opslens/internal/storage"
	"github.com/opslens/opslens/pkg/insight"
	"github.com/opslens/opslens/pkg/logger"

	"github.com/labstack/echo/v4"
)

const maxListedInsights = 100

// GetInsightsHandler returns the archived insights for the caller's
// tenant, newest keys last.
func GetInsightsHandler(c echo.Context) error {
	type insightsResponse struct {
		Message  string             `json:"message"`
		Insights []*insight.Insight `json:"insights"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, insightsResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	keys, err := storage.ListInsightKeys(ctx, app.S3, user.TenantID)
	if err != nil {
		logger.Error("Failed to list insights", "tenant", user.TenantID, "err", err)
		return c.JSON(http.StatusInternalServerError, insightsResponse{
			Message: "Failed to list insights",
		})
	}
	if len(keys) > maxListedInsights {
		keys = keys[len(keys)-maxListedInsights:]
	}

	insights := make([]*insight.Insight, 0, len(keys))
	for _, key := range keys {
		ins, err := storage.GetInsight(ctx, app.S3, key)
		if err != nil {
			logger.Warn("Failed to load archived insight", "key", key, "err", err)
			continue
		}
		insights = append(insights, ins)
	}

	return c.JSON(http.StatusOK, insightsResponse{
		Message:  "OK",
		Insights: insights,
	})
}
