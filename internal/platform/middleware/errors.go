package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carepoint/hms/internal/platform/apperr"
)

// ErrorBody is the JSON error envelope returned by every endpoint.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable"`
}

// ErrorHandler renders typed errors and echo errors with the envelope.
// Internal error details are logged, never returned.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

func render(err error) (int, ErrorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, ErrorBody{Error: ErrorDetail{
			Code:      codeForStatus(he.Code),
			Message:   msg,
			Retryable: he.Code == http.StatusServiceUnavailable || he.Code == http.StatusTooManyRequests,
		}}
	}

	ae := apperr.As(err)
	status := ae.Kind.HTTPStatus()
	if ae.Code == apperr.CodeTimeout {
		status = http.StatusGatewayTimeout
	}
	msg := ae.Message
	if ae.Kind == apperr.KindInternal {
		msg = "internal error"
	}
	return status, ErrorBody{Error: ErrorDetail{
		Code:      ae.Code,
		Message:   msg,
		Fields:    ae.Fields,
		Retryable: ae.Kind.Retryable(),
	}}
}

func statusOf(err error) int {
	status, _ := render(err)
	return status
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return apperr.CodeValidation
	case http.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperr.CodeNotFound
	case http.StatusConflict:
		return apperr.CodeConflict
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return apperr.CodeTransient
	case http.StatusGatewayTimeout:
		return apperr.CodeTimeout
	default:
		return apperr.CodeInternal
	}
}
