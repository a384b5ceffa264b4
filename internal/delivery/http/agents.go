package http

import (
	"net/http"

	"prism/internal/dto"
	"prism/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAgents(g *echo.Group) {
	agents := g.Group("/agents")
	agents.POST("", h.CreateAgent)
	agents.GET("", h.ListAgents)
	agents.GET("/:id", h.GetAgent)
	agents.PATCH("/:id", h.UpdateAgent)
	agents.DELETE("/:id", h.DeleteAgent)
}

func (h *HttpAPIHandler) CreateAgent(c echo.Context) error {
	var req dto.CreateAgentRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.AgentService.Create(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, resp)
}

func (h *HttpAPIHandler) ListAgents(c echo.Context) error {
	resp, err := h.service.AgentService.FindAll(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) GetAgent(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.AgentService.FindOne(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) UpdateAgent(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateAgentRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.AgentService.Update(c.Request().Context(), middleware.UserID(c), id, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) DeleteAgent(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.AgentService.Remove(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil)
}
