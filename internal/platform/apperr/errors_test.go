package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("book: %w", Conflict(CodeSlotTaken, "slot taken"))

	if !errors.Is(err, ErrConflict) {
		t.Error("expected wrapped conflict to match ErrConflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("conflict must not match ErrNotFound")
	}
	if !errors.Is(err, &Error{Kind: KindConflict, Code: CodeSlotTaken}) {
		t.Error("expected code-specific match")
	}
	if errors.Is(err, &Error{Kind: KindConflict, Code: CodeDepartmentInUse}) {
		t.Error("different code must not match")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{NotFound("appointment"), KindNotFound},
		{fmt.Errorf("wrap: %w", InvalidTransition("completed", "cancelled")), KindInvalidTransition},
		{Transient(errors.New("conn reset")), KindTransient},
		{errors.New("plain"), KindInternal},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestKind_HTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindValidation:        http.StatusBadRequest,
		KindConflict:          http.StatusConflict,
		KindNotFound:          http.StatusNotFound,
		KindForbidden:         http.StatusForbidden,
		KindUnauthorized:      http.StatusUnauthorized,
		KindInvalidTransition: http.StatusUnprocessableEntity,
		KindTransient:         http.StatusServiceUnavailable,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("%s: expected %d, got %d", kind, want, got)
		}
	}
	if !KindTransient.Retryable() || KindConflict.Retryable() {
		t.Error("only transient errors are retryable")
	}
}

func TestFieldErrors(t *testing.T) {
	f := FieldErrors{}
	f.Required("name", "  ")
	f.MinLen("reason_for_visit", "  too short ", 10)
	f.Email("email", "not-an-email")
	f.NonNegative("consultation_fee", -1)
	f.MinLen("diagnosis", "Influenza A", 5)

	err := f.Err()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	for _, field := range []string{"name", "reason_for_visit", "email", "consultation_fee"} {
		if _, ok := e.Fields[field]; !ok {
			t.Errorf("expected field error for %s", field)
		}
	}
	if _, ok := e.Fields["diagnosis"]; ok {
		t.Error("diagnosis is long enough")
	}
}

func TestFieldErrors_Empty(t *testing.T) {
	if err := (FieldErrors{}).Err(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
