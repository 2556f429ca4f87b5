package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func roleContext(role Role) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithCaller(req.Context(), Caller{UserID: uuid.New(), ProfileID: uuid.New(), Role: role}))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestRequireRole_Allowed(t *testing.T) {
	c, rec := roleContext(RoleDoctor)
	if err := RequireRole(RoleDoctor)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	c, _ := roleContext(RolePatient)
	err := RequireRole(RoleDoctor)(okHandler)(c)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_AdminBypass(t *testing.T) {
	c, _ := roleContext(RoleAdmin)
	if err := RequireRole(RoleDoctor, RolePatient)(okHandler)(c); err != nil {
		t.Fatalf("admin should bypass role checks: %v", err)
	}
}

func TestRequireRole_Unauthenticated(t *testing.T) {
	c, _ := roleContext("")
	err := RequireRole(RolePatient)(okHandler)(c)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleDoctor, RolePatient} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("nurse").Valid() {
		t.Error("nurse is not a role in this system")
	}
}
