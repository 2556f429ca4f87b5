package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
)

type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *mockRecorder) last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func auditContext(method, target string, caller *auth.Caller) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	if caller != nil {
		req = req.WithContext(auth.WithCaller(context.Background(), *caller))
	}
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("request_id", "req-123")
	return c
}

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestAudit_RecordsPHIAccess(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), ProfileID: uuid.New(), Role: auth.RoleDoctor}
	recordID := uuid.New()
	c := auditContext(http.MethodGet, "/api/v1/medical-records/"+recordID.String(), &caller)
	rec := &mockRecorder{}

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("expected 1 entry, got %d", rec.count())
	}
	got := rec.last()
	if got.Resource != "medical-records" {
		t.Errorf("resource = %q", got.Resource)
	}
	if got.ResourceID != recordID.String() {
		t.Errorf("resource id = %q, want %s", got.ResourceID, recordID)
	}
	if got.CallerID != caller.ProfileID.String() || got.Role != "doctor" {
		t.Errorf("caller = %q/%q", got.CallerID, got.Role)
	}
	if got.Action != "read" || got.StatusCode != http.StatusOK || got.RequestID != "req-123" {
		t.Errorf("unexpected entry %+v", got)
	}
}

func TestAudit_PatientQueryAndCreateAction(t *testing.T) {
	patientID := uuid.New()
	c := auditContext(http.MethodPost, "/api/v1/documents?patient_id="+patientID.String(), nil)
	rec := &mockRecorder{}

	Audit(zerolog.Nop(), rec)(func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})(c)

	got := rec.last()
	if got.PatientID != patientID.String() {
		t.Errorf("patient id = %q, want %s", got.PatientID, patientID)
	}
	if got.Action != "create" || got.StatusCode != http.StatusCreated {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.CallerID != "" {
		t.Errorf("expected empty caller for anonymous request, got %q", got.CallerID)
	}
}

func TestAudit_SkipsNonPHIRoutes(t *testing.T) {
	rec := &mockRecorder{}
	for _, path := range []string{"/health", "/api/v1/departments", "/api/v1/doctors", "/api/v1/auth/signin"} {
		c := auditContext(http.MethodGet, path, nil)
		Audit(zerolog.Nop(), rec)(okHandler)(c)
	}
	if rec.count() != 0 {
		t.Errorf("expected no entries, got %d", rec.count())
	}
}

func TestAudit_StatusFromHandlerError(t *testing.T) {
	c := auditContext(http.MethodDelete, "/api/v1/appointments/"+uuid.NewString(), nil)
	rec := &mockRecorder{}

	err := Audit(zerolog.Nop(), rec)(func(c echo.Context) error {
		return apperr.Forbidden("not yours")
	})(c)

	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}
	got := rec.last()
	if got.StatusCode != http.StatusForbidden || got.Action != "delete" {
		t.Errorf("unexpected entry %+v", got)
	}
}

func TestAudit_RecorderFailureDoesNotFailRequest(t *testing.T) {
	c := auditContext(http.MethodGet, "/api/v1/appointments", nil)
	rec := &mockRecorder{err: errors.New("sink down")}

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("expected recorder to be called once, got %d", rec.count())
	}
}

func TestAudit_NilRecorder(t *testing.T) {
	c := auditContext(http.MethodPut, "/api/v1/appointments/"+uuid.NewString()+"/visit", nil)
	if err := Audit(zerolog.Nop(), nil)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSplitResource(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		path, resource, id string
	}{
		{"/api/v1/appointments", "appointments", ""},
		{"/api/v1/appointments/" + id + "/status", "appointments", id},
		{"/api/v1/documents/not-a-uuid", "documents", ""},
		{"/health", "", ""},
	}
	for _, tt := range tests {
		r, gotID := splitResource(tt.path)
		if r != tt.resource || gotID != tt.id {
			t.Errorf("splitResource(%q) = (%q, %q), want (%q, %q)", tt.path, r, gotID, tt.resource, tt.id)
		}
	}
}
