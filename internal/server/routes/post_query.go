package routes

import (
	"net/http"

	"github.com/opslens/opslens/internal/server/middleware"
	"github.com/opslens/opslens/pkg/common"
	"github.com/opslens/opslens/pkg/hybrid"
	"github.com/opslens/opslens/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// QueryHandler runs one hybrid retrieval query for the caller's tenant.
func QueryHandler(c echo.Context) error {
	type queryBody struct {
		Query         string `json:"query" validate:"required"`
		TopK          int    `json:"top_k" validate:"omitempty,min=1,max=100"`
		MaxGraphFacts int    `json:"max_graph_facts" validate:"omitempty,min=1,max=100"`
		IncludeGraph  *bool  `json:"include_graph"`
		Source        string `json:"source"`
	}

	type queryResponse struct {
		Message   string              `json:"message"`
		RequestID string              `json:"request_id,omitempty"`
		Result    *common.QueryResult `json:"result,omitempty"`
	}

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, queryResponse{
			Message: "Unauthorized",
		})
	}

	requestID, err := gonanoid.New()
	if err != nil {
		logger.Error("Failed to generate request id", "err", err)
		return c.JSON(http.StatusInternalServerError, queryResponse{
			Message: "Internal server error",
		})
	}

	includeGraph := true
	if data.IncludeGraph != nil {
		includeGraph = *data.IncludeGraph
	}

	app := c.(*middleware.AppContext).App
	result, err := app.Orchestrator.Query(c.Request().Context(), hybrid.Request{
		Query:         data.Query,
		TenantID:      user.TenantID,
		VectorTopK:    data.TopK,
		MaxGraphFacts: data.MaxGraphFacts,
		IncludeGraph:  includeGraph,
		Source:        data.Source,
	})
	if err != nil {
		logger.Error("Query failed", "request_id", requestID, "tenant", user.TenantID, "err", err)
		return c.JSON(http.StatusBadGateway, queryResponse{
			Message:   "Query failed, please retry",
			RequestID: requestID,
		})
	}

	return c.JSON(http.StatusOK, queryResponse{
		Message:   "OK",
		RequestID: requestID,
		Result:    result,
	})
}
