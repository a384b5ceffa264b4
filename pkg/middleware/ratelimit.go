package middleware

import (
	"net/http"
	"time"

	"prism/config"
	"prism/internal/apperror"
	"prism/internal/dto"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const CodeRateLimited = "P429"

// NewRateLimiterMiddleware limits each caller, keyed by user id and falling back to the client IP.
// A zero rate disables limiting.
func NewRateLimiterMiddleware(cfg config.API) echo.MiddlewareFunc {
	if cfg.RateLimitPerSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimitPerSecond),
				Burst:     cfg.RateLimitBurst,
				ExpiresIn: 3 * time.Minute,
			},
		),

		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			if id := ctx.Request().Header.Get(UserIDHeader); id != "" {
				return "user:" + id, nil
			}
			return "ip:" + ctx.RealIP(), nil
		},

		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden,
				dto.NewErrorResponse(apperror.CodeInternal, "Access forbidden: rate limiter error occurred", nil))
		},

		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests,
				dto.NewErrorResponse(CodeRateLimited, "Too many requests: rate limit exceeded, please try again later", nil))
		},
	}

	return middleware.RateLimiterWithConfig(limiterConfig)
}
