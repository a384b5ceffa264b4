package http

import (
	"context"
	"net/http"

	"prism/internal/dto"
	"prism/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupTasks(g *echo.Group) {
	tasks := g.Group("/tasks")
	tasks.GET("/:id", h.GetTask)
	tasks.PATCH("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
	tasks.PATCH("/:id/position", h.ChangeTaskPosition)
	tasks.GET("/:id/context", h.GetTaskContext)
	tasks.GET("/:id/executions", h.ListTaskExecutions)

	tasks.POST("/:id/execute", h.ExecuteTask)
	tasks.POST("/:id/approve", h.taskAction(h.service.TaskService.Approve))
	tasks.POST("/:id/cancel", h.taskAction(h.service.TaskService.Cancel))
	tasks.POST("/:id/reopen", h.taskAction(h.service.TaskService.Reopen))
	tasks.POST("/:id/reject", h.RejectTask)
}

func (h *HttpAPIHandler) CreateTask(c echo.Context) error {
	boardID, err := paramID(c, "boardId")
	if err != nil {
		return err
	}
	var req dto.CreateTaskRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.TaskService.Create(c.Request().Context(), middleware.UserID(c), boardID, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, resp)
}

func (h *HttpAPIHandler) ListTasks(c echo.Context) error {
	boardID, err := paramID(c, "boardId")
	if err != nil {
		return err
	}

	resp, err := h.service.TaskService.FindAllByBoard(c.Request().Context(), middleware.UserID(c), boardID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) GetTask(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.TaskService.FindOne(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) UpdateTask(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTaskRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.TaskService.Update(c.Request().Context(), middleware.UserID(c), id, req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) DeleteTask(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.TaskService.Remove(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil)
}

func (h *HttpAPIHandler) ChangeTaskPosition(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ChangePositionRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.TaskService.ChangePosition(c.Request().Context(), middleware.UserID(c), id, *req.Position)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

func (h *HttpAPIHandler) GetTaskContext(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.TaskService.GetContext(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

// ExecuteTask answers 202 once the execution is queued; the result arrives over the event stream.
func (h *HttpAPIHandler) ExecuteTask(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	resp, err := h.service.ExecutionService.ExecuteTask(c.Request().Context(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusAccepted, resp)
}

func (h *HttpAPIHandler) RejectTask(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	// An empty body rejects without feedback.
	var req dto.RejectTaskRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.service.TaskService.Reject(c.Request().Context(), middleware.UserID(c), id, req.Feedback)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, resp)
}

type taskActionFunc func(ctx context.Context, userID string, id uint) (*dto.TaskResponse, error)

func (h *HttpAPIHandler) taskAction(action taskActionFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}

		resp, err := action(c.Request().Context(), middleware.UserID(c), id)
		if err != nil {
			return err
		}
		return ok(c, http.StatusOK, resp)
	}
}
