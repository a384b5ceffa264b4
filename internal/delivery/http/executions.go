package http

import (
	"net/http"

	"prism/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupExecutions(g *echo.Group) {
	g.GET("/executions/:id", h.GetExecution)
}

func (h *HttpAPIHandler) ListTaskExecutions(c echo.Context) error {
	taskID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.ExecutionService.FindByTask(c.Request().Context(), middleware.UserID(c), taskID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) GetExecution(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.ExecutionService.FindOne(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}
