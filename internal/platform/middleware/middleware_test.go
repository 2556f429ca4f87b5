package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/metrics"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		rid := c.Get("request_id").(string)
		if rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := RequestID()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if rid := c.Get("request_id").(string); rid != "my-custom-id" {
			t.Errorf("expected my-custom-id, got %s", rid)
		}
		return c.String(http.StatusOK, "ok")
	}

	RequestID()(handler)(c)

	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_ReplacesOversizedHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("a", 500))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	RequestID()(func(c echo.Context) error { return nil })(c)

	if got := rec.Header().Get(RequestIDHeader); len(got) != 36 {
		t.Errorf("expected a generated uuid, got %q", got)
	}
}

func TestLogger_RendersErrorAndLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logger)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors/x", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("caller_id", "profile-1")

	err := Logger(logger)(func(c echo.Context) error {
		return apperr.NotFound("doctor")
	})(c)

	if err != nil {
		t.Fatalf("expected logger to consume the error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"status":404`) || !strings.Contains(out, `"caller_id":"profile-1"`) {
		t.Errorf("expected status and caller in log line, got %s", out)
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Recovery(logger)(func(c echo.Context) error {
		panic("test panic")
	})(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Recovery(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestErrorHandler_TypedErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"validation", apperr.Validation("reason", "must be at least 10 characters"), 400, apperr.CodeValidation, false},
		{"slot taken", apperr.Conflict(apperr.CodeSlotTaken, "slot already booked"), 409, apperr.CodeSlotTaken, false},
		{"not found", apperr.NotFound("appointment"), 404, apperr.CodeNotFound, false},
		{"forbidden", apperr.Forbidden("not your appointment"), 403, apperr.CodeForbidden, false},
		{"transition", apperr.InvalidTransition("completed", "cancelled"), 422, apperr.CodeInvalidTransition, false},
		{"transient", apperr.Transient(errors.New("conn reset")), 503, apperr.CodeTransient, true},
		{"untyped", errors.New("boom"), 500, apperr.CodeInternal, false},
		{"echo 401", echo.NewHTTPError(http.StatusUnauthorized, "invalid token"), 401, apperr.CodeUnauthorized, false},
		{"echo 429", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), 429, "RATE_LIMITED", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			ErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			got := decodeEnvelope(t, rec)
			if got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", got.Retryable, tt.retryable)
			}
		})
	}
}

func TestErrorHandler_HidesInternalDetail(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(zerolog.Nop())(apperr.Internal(errors.New("pq: password authentication failed")), c)

	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestErrorHandler_IncludesFields(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(zerolog.Nop())(apperr.Validation("date", "must not be in the past"), c)

	got := decodeEnvelope(t, rec)
	if got.Fields["date"] != "must not be in the past" {
		t.Errorf("expected date field message, got %v", got.Fields)
	}
}

func TestMetrics_ObservesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTPMetrics(reg)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/doctors/:id")

	err := Metrics(m)(func(c echo.Context) error {
		return apperr.NotFound("doctor")
	})(c)
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}

	count, cerr := testutil.GatherAndCount(reg, "hms_http_requests_total")
	if cerr != nil {
		t.Fatalf("gather: %v", cerr)
	}
	if count != 1 {
		t.Fatalf("expected one series, got %d", count)
	}
	expected := `
# HELP hms_http_requests_total HTTP requests by route, method and status
# TYPE hms_http_requests_total counter
hms_http_requests_total{method="GET",route="/api/v1/doctors/:id",status="404"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "hms_http_requests_total"); err != nil {
		t.Error(err)
	}
}
