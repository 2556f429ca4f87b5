package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carepoint/hms/internal/platform/metrics"
)

// Metrics records request count and latency by route template, so path
// parameters do not blow up label cardinality.
func Metrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = statusOf(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.Observe(route, c.Request().Method, strconv.Itoa(status), time.Since(start).Seconds())
			return err
		}
	}
}
