package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)

	m.ObserveBooking("booked")
	m.ObserveBooking("conflict")
	m.ObserveBooking("conflict")
	m.ObserveTransition("completed", "ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookings.WithLabelValues("booked")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookings.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("completed", "ok")))
}

func TestDocumentMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDocumentMetrics(reg)

	m.ObserveUpload("stored", 2048)
	m.ObserveUpload("rejected", 10)
	m.ObserveCompensation("deleted")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("stored")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.uploadBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues("deleted")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var s *SchedulingMetrics
	var d *DocumentMetrics
	var h *HTTPMetrics
	assert.NotPanics(t, func() {
		s.ObserveBooking("booked")
		s.ObserveTransition("cancelled", "ok")
		d.ObserveUpload("stored", 1)
		d.ObserveCompensation("failed")
		h.Observe("/x", "GET", "200", 0.1)
	})
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("/api/v1/appointments", http.MethodGet, "200", 0.02)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "hms_http_requests_total"))
}
