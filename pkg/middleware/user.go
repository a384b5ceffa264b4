package middleware

import (
	"net/http"
	"strings"

	"prism/internal/apperror"
	"prism/internal/dto"
	"prism/pkg/logger"

	"github.com/labstack/echo/v4"
)

// UserIDHeader carries the caller identity resolved by the upstream gateway.
const UserIDHeader = "X-User-Id"

const userIDKey = "userID"

// RequireUserID rejects requests without a user id header and stores the id on the context.
func RequireUserID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := strings.TrimSpace(c.Request().Header.Get(UserIDHeader))
			if userID == "" {
				return c.JSON(http.StatusUnauthorized,
					dto.NewErrorResponse(apperror.CodeValidation, UserIDHeader+" header is required", nil))
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// UserID returns the id stored by RequireUserID.
func UserID(c echo.Context) string {
	userID, _ := c.Get(userIDKey).(string)
	return userID
}

// RequestLogger attaches a request scoped logger to the request context and logs each request.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqLog := log.With(
				logger.StringField("method", req.Method),
				logger.StringField("path", c.Path()),
				logger.StringField("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			c.SetRequest(req.WithContext(logger.NewContext(req.Context(), reqLog)))

			err := next(c)

			reqLog.Debug("Request handled",
				logger.IntField("status", c.Response().Status),
				logger.UserIDField(req.Header.Get(UserIDHeader)),
			)
			return err
		}
	}
}
