package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"prism/config"
	"prism/internal/apperror"
	"prism/internal/dto"
	"prism/internal/event"
	"prism/internal/service"
	"prism/pkg/logger"
	"prism/pkg/middleware"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	ctx       context.Context
	cfg       *config.Config
	log       *logger.Logger
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	bus       event.Bus
}

func NewHttpAPIHandler(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	echo *echo.Echo,
	validator *goValidator.Validate,
	service *service.Service,
	bus event.Bus,
) *HttpAPIHandler {
	return &HttpAPIHandler{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		echo:      echo,
		validator: validator,
		service:   service,
		bus:       bus,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.HTTPErrorHandler = h.errorHandler

	base := h.echo.Group("/api/v1",
		middleware.RequestLogger(h.log),
		middleware.RequireUserID(),
		middleware.NewRateLimiterMiddleware(h.cfg.API),
	)
	h.SetupBoards(base)
	h.SetupTasks(base)
	h.SetupExecutions(base)
	h.SetupProviders(base)
	h.SetupAgents(base)
	h.SetupEvents(base)
}

// bindAndValidate decodes the request body into req and validates it.
func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apperror.Validation(err.Error())
	}
	return nil
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation(name + " must be a positive integer")
	}
	return uint(id), nil
}

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, dto.NewSuccessResponse(data))
}

// errorHandler renders every handler error in the response envelope.
func (h *HttpAPIHandler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := h.toResponse(c, err)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		h.log.WarnContext(c.Request().Context(), "Failed to write error response", logger.ErrorField(err))
	}
}

func (h *HttpAPIHandler) toResponse(c echo.Context, err error) (int, *dto.BaseResponse) {
	if appErr, found := apperror.From(err); found {
		return appErr.Status, dto.NewErrorResponse(appErr.Code, appErr.Message, appErr.Details)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := apperror.CodeInternal
		switch httpErr.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			code = apperror.CodeNotFound
		case http.StatusBadRequest:
			code = apperror.CodeValidation
		}
		return httpErr.Code, dto.NewErrorResponse(code, http.StatusText(httpErr.Code), nil)
	}

	h.log.ErrorContext(c.Request().Context(), "Unhandled request error", logger.ErrorField(err))
	return http.StatusInternalServerError, dto.NewErrorResponse(apperror.CodeInternal, "internal server error", nil)
}
