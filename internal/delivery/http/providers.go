package http

import (
	"net/http"

	"prism/internal/dto"
	"prism/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupProviders(g *echo.Group) {
	providers := g.Group("/providers")
	providers.POST("", h.CreateProvider)
	providers.GET("", h.ListProviders)
	providers.GET("/:id", h.GetProvider)
	providers.PATCH("/:id", h.UpdateProvider)
	providers.DELETE("/:id", h.DeleteProvider)
	providers.POST("/:id/verify", h.VerifyProvider)
	providers.GET("/:id/models", h.GetProviderModels)
}

func (h *HttpAPIHandler) CreateProvider(c echo.Context) error {
	var req dto.CreateProviderRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.ProviderService.Create(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, resp)
}

func (h *HttpAPIHandler) ListProviders(c echo.Context) error {
	resp, err := h.service.ProviderService.FindAll(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) GetProvider(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.ProviderService.FindOne(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) UpdateProvider(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateProviderRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.ProviderService.Update(c.Request().Context(), middleware.UserID(c), id, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) DeleteProvider(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.ProviderService.Remove(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil)
}

func (h *HttpAPIHandler) VerifyProvider(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.ProviderService.Verify(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) GetProviderModels(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	models, err := h.service.ProviderService.GetModels(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, models)
}
