package scheduling

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/store"
	"github.com/carepoint/hms/pkg/civil"
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

func TestRepo_UpdateStatus_GuardsOnCurrentStatus(t *testing.T) {
	mock, c := newMockClient(t)
	repo := NewRepo(c)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "appointments" SET "status" = $1, "updated_at" = NOW() WHERE "id" = $2 AND "status" = $3 RETURNING`)).
		WithArgs("completed", id, "scheduled").
		WillReturnRows(pgxmock.NewRows(appointmentsTable.Columns))

	_, err := repo.UpdateStatus(context.Background(), id, StatusScheduled, StatusCompleted)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found when the guard misses, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepo_UpdateStatus_TerminalTrigger(t *testing.T) {
	mock, c := newMockClient(t)
	repo := NewRepo(c)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE "appointments"`).
		WithArgs("cancelled", id, "scheduled").
		WillReturnError(&pgconn.PgError{Code: "HM001", Message: "appointment is completed, status can no longer change"})

	_, err := repo.UpdateStatus(context.Background(), id, StatusScheduled, StatusCancelled)
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestRepo_Create_SlotIndexConflict(t *testing.T) {
	mock, c := newMockClient(t)
	repo := NewRepo(c)

	mock.ExpectQuery(`INSERT INTO "appointments"`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_doctor_slot_key"})

	_, err := repo.Create(context.Background(), store.Record{"appointment_time": "10:00"})
	if apperr.As(err).Code != apperr.CodeSlotTaken {
		t.Fatalf("expected SLOT_TAKEN, got %v", err)
	}
}

func TestRepo_BookedSlots(t *testing.T) {
	mock, c := newMockClient(t)
	repo := NewRepo(c)
	doctor := uuid.New()
	date, _ := civil.Parse("2025-05-21")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT booked_slots($1, $2)`)).
		WithArgs(doctor, date).
		WillReturnRows(pgxmock.NewRows([]string{"booked_slots"}).AddRow("09:00").AddRow("10:30"))

	slots, err := repo.BookedSlots(context.Background(), doctor, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 || slots[0] != "09:00" || slots[1] != "10:30" {
		t.Errorf("unexpected slots: %v", slots)
	}
}
