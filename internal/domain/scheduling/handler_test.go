package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
)

func request(method, target, body string, caller auth.Caller) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req.WithContext(auth.WithCaller(req.Context(), caller))
}

func TestHandler_BookAndTransition(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))

	body := `{"department_id":"` + cardio.String() + `","doctor_id":"` + f.doctor.ProfileID.String() +
		`","appointment_date":"2025-05-21","appointment_time":"10:00","reason_for_visit":"Persistent headaches"}`
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, request(http.MethodPost, "/api/v1/appointments", body, f.patient))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var appt Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if appt.AppointmentDate.String() != "2025-05-21" || appt.Status != StatusScheduled {
		t.Errorf("unexpected appointment: %+v", appt)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, request(http.MethodPost, "/api/v1/appointments/"+appt.ID.String()+"/status", `{"status":"completed"}`, f.doctor))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Book_DoctorForbiddenByRoute(t *testing.T) {
	f := newFixture()
	e := echo.New()
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, request(http.MethodPost, "/api/v1/appointments", `{}`, f.doctor))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestHandler_List_BadDate(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	c := echo.New().NewContext(request(http.MethodGet, "/api/v1/appointments?from=05/21/2025", "", f.patient), httptest.NewRecorder())

	if err := h.ListAppointments(c); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandler_GetAppointment_OutOfScope(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	appt, err := f.svc.Book(request(http.MethodGet, "/", "", f.patient).Context(), f.patient, f.request(t, "2025-05-21", "10:00"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	c := echo.New().NewContext(request(http.MethodGet, "/", "", f.other), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(appt.ID.String())
	if err := h.GetAppointment(c); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandler_DoctorSlots(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(request(http.MethodGet, "/?date=2025-05-21", "", f.patient), rec)
	c.SetParamNames("id")
	c.SetParamValues(f.doctor.ProfileID.String())
	if err := h.DoctorSlots(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var av Availability
	json.Unmarshal(rec.Body.Bytes(), &av)
	if len(av.Slots) != len(Slots) {
		t.Errorf("expected %d slots, got %d", len(Slots), len(av.Slots))
	}

	c = echo.New().NewContext(request(http.MethodGet, "/", "", f.patient), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	if err := h.DoctorSlots(c); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error without date, got %v", err)
	}
}
