package server

import (
	"github.com/opslens/opslens/internal/server/middleware"
	"github.com/opslens/opslens/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Retrieval routes
	apiRoutes.POST("/query", routes.QueryHandler)
	apiRoutes.GET("/episodes/:id/chunks", routes.GetEpisodeChunksHandler)

	// Insight routes
	apiRoutes.POST("/insights/scan", routes.ScanInsightsHandler)
	apiRoutes.GET("/insights", routes.GetInsightsHandler)
}
