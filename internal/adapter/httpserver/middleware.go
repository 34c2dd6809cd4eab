package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/overlayd/internal/platform/correlation"
)

// correlationMiddleware adopts a well-formed X-Correlation-ID from the caller or mints one,
// and echoes it back on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.Sanitize(c.Request().Header.Get(correlation.Header))
		if id == "" {
			id = correlation.NewID()
		}
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}
