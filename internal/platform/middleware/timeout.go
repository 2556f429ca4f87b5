package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carepoint/hms/internal/platform/apperr"
)

// RequestTimeout sets a deadline on each request context. Handlers run on the
// request goroutine and observe the deadline through their store, blob and
// cache calls; if the deadline has passed when the handler returns, the
// caller gets a retryable timeout error instead of whatever partial result
// was produced.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return &apperr.Error{
					Kind:    apperr.KindTransient,
					Code:    apperr.CodeTimeout,
					Message: "request exceeded the allowed time, retry the request",
					Err:     ctx.Err(),
				}
			}
			return err
		}
	}
}
