package dashboard

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/carepoint/hms/internal/platform/store"
)

func TestCounter_Count(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	counter := NewCounter(store.New(mock))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "profiles" WHERE "role" = $1`)).
		WithArgs("doctor").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	n, err := counter.Count(context.Background(), Profiles, store.Where("role", "doctor"))
	if err != nil || n != 12 {
		t.Fatalf("got %d (%v), want 12", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCounter_UnknownSource(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	if _, err := NewCounter(store.New(mock)).Count(context.Background(), Source("billing")); err == nil {
		t.Error("expected an error for an unknown source")
	}
}
