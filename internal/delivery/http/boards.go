package http

import (
	"net/http"

	"prism/internal/dto"
	"prism/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBoards(g *echo.Group) {
	boards := g.Group("/boards")
	boards.POST("", h.CreateBoard)
	boards.GET("", h.ListBoards)
	boards.GET("/:boardId", h.GetBoard)
	boards.PATCH("/:boardId", h.UpdateBoard)
	boards.DELETE("/:boardId", h.DeleteBoard)

	boards.POST("/:boardId/tasks", h.CreateTask)
	boards.GET("/:boardId/tasks", h.ListTasks)
}

func (h *HttpAPIHandler) CreateBoard(c echo.Context) error {
	var req dto.CreateBoardRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.BoardService.Create(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, resp)
}

func (h *HttpAPIHandler) ListBoards(c echo.Context) error {
	resp, err := h.service.BoardService.FindAll(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) GetBoard(c echo.Context) error {
	id, err := paramID(c, "boardId")
	if err != nil {
		return err
	}

	resp, err := h.service.BoardService.FindOne(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) UpdateBoard(c echo.Context) error {
	id, err := paramID(c, "boardId")
	if err != nil {
		return err
	}
	var req dto.UpdateBoardRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.BoardService.Update(c.Request().Context(), middleware.UserID(c), id, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) DeleteBoard(c echo.Context) error {
	id, err := paramID(c, "boardId")
	if err != nil {
		return err
	}

	if err := h.service.BoardService.Remove(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil)
}
