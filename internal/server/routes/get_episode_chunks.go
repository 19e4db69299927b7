package routes

import (
	"net/http"

	"github.com/opslens/opslens/internal/server/middleware"
	"github.com/opslens/opslens/pkg/common"
	"github.com/opslens/opslens/pkg/logger"
	"github.com/opslens/opslens/pkg/vector"

	"github.com/labstack/echo/v4"
)

// GetEpisodeChunksHandler returns every chunk linked to one episode for
// the caller's tenant. This is the episode context lookup: the caller
// already holds an episode id from a prior query result and wants the
// full underlying document context.
func GetEpisodeChunksHandler(c echo.Context) error {
	type episodeChunksResponse struct {
		Message string         `json:"message"`
		Chunks  []common.Chunk `json:"chunks"`
	}

	episodeID := c.Param("id")
	if episodeID == "" {
		return c.JSON(http.StatusBadRequest, episodeChunksResponse{
			Message: "Missing episode id",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, episodeChunksResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	chunks, err := app.Vector.ScrollByFilter(c.Request().Context(), vector.ScrollFilter{
		TenantID:  user.TenantID,
		EpisodeID: episodeID,
	})
	if err != nil {
		logger.Error("Failed to load episode chunks", "tenant", user.TenantID, "episode", episodeID, "err", err)
		return c.JSON(http.StatusInternalServerError, episodeChunksResponse{
			Message: "Failed to load episode chunks",
		})
	}

	return c.JSON(http.StatusOK, episodeChunksResponse{
		Message: "OK",
		Chunks:  chunks,
	})
}
