package routes

import (
	"net/http"

	"github.com/opslens/opslens/internal/queue"
	"github.com/opslens/opslens/internal/server/middleware"
	"github.com/opslens/opslens/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ScanInsightsHandler enqueues a batch insight scan for the caller's
// tenant. The scan itself runs on the worker; the handler only validates
// and hands off.
func ScanInsightsHandler(c echo.Context) error {
	type scanBody struct {
		Questions []string `json:"questions" validate:"required,min=1,max=50,dive,required"`
	}

	type scanResponse struct {
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	}

	data := new(scanBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, scanResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, scanResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, scanResponse{
			Message: "Unauthorized",
		})
	}

	requestID, err := gonanoid.New()
	if err != nil {
		logger.Error("Failed to generate request id", "err", err)
		return c.JSON(http.StatusInternalServerError, scanResponse{
			Message: "Internal server error",
		})
	}

	app := c.(*middleware.AppContext).App
	err = queue.PublishScanJob(app.Queue, queue.ScanJobMsg{
		RequestID: requestID,
		TenantID:  user.TenantID,
		Questions: data.Questions,
	})
	if err != nil {
		logger.Error("Failed to enqueue insight scan", "request_id", requestID, "tenant", user.TenantID, "err", err)
		return c.JSON(http.StatusInternalServerError, scanResponse{
			Message: "Failed to enqueue scan",
		})
	}

	logger.Info("Enqueued insight scan", "request_id", requestID, "tenant", user.TenantID, "questions", len(data.Questions))
	return c.JSON(http.StatusAccepted, scanResponse{
		Message:   "Scan enqueued",
		RequestID: requestID,
	})
}
