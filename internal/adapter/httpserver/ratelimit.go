package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/overlayd/internal/metrics"
	apperrors "github.com/pscheid92/overlayd/internal/platform/errors"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// Reads and writes are limited in separate buckets so a dashboard polling status cannot starve
// show/hide commands from the same client.
const (
	requestClassRead  = "read"
	requestClassWrite = "write"
)

func requestClass(c echo.Context) string {
	switch c.Request().Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return requestClassRead
	default:
		return requestClassWrite
	}
}

func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(ratePerSecond),
		Burst:     burst,
		ExpiresIn: rateLimiterExpiry,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return requestClass(c) + ":" + c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			metrics.ControlRequestsRateLimitedTotal.WithLabelValues(requestClass(c)).Inc()
			return apperrors.HandleError(c, apperrors.RateLimitedError("rate limit exceeded"))
		},
	})
}
