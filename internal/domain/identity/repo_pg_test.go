package identity

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/store"
)

func newMockClient(t *testing.T) (pgxmock.PgxPoolIface, *store.Client) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, store.New(mock)
}

func TestProfileRepo_ListByRole(t *testing.T) {
	mock, c := newMockClient(t)
	repo := NewProfileRepo(c)
	now := time.Now()
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "profiles" WHERE "role" = $1`)).
		WithArgs("patient").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "profiles" WHERE "role" = $1 ORDER BY "first_name" ASC, "last_name" ASC LIMIT $2`)).
		WithArgs("patient", 20).
		WillReturnRows(pgxmock.NewRows(profilesTable.Columns).AddRow(
			id, uuid.New(), "Pat", "Smith", auth.RolePatient, nil, nil, nil, nil, nil, nil, now, now,
		))

	items, total, err := repo.ListByRole(context.Background(), auth.RolePatient, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected 1 item, got %d (total %d)", len(items), total)
	}
	if items[0].ID != id || items[0].Role != auth.RolePatient {
		t.Errorf("unexpected profile: %+v", items[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDoctorRepo_GetByProfileID_NotFound(t *testing.T) {
	mock, c := newMockClient(t)
	repo := NewDoctorRepo(c)
	pid := uuid.New()

	mock.ExpectQuery(`FROM doctor_profiles d JOIN profiles p`).
		WithArgs(pid).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.GetByProfileID(context.Background(), pid)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDoctorRecord_NilDaysBecomeEmpty(t *testing.T) {
	rec := doctorRecord(&DoctorProfile{Specialization: "Cardiology", LicenseNumber: "LIC-1"})
	days, ok := rec["available_days"].([]string)
	if !ok || days == nil || len(days) != 0 {
		t.Errorf("expected empty day list, got %#v", rec["available_days"])
	}
	if _, ok := rec["profile_id"]; ok {
		t.Error("profile_id must not be part of the editable record")
	}
}
