package db

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carepoint/hms/internal/platform/apperr"
)

// Op distinguishes reads from writes and deletes when classifying
// foreign-key violations.
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpDelete
)

// PostgreSQL error codes the service reacts to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInsufficientPriv    = "42501"
	// Raised by the appointment status trigger.
	codeTerminalStatus = "HM001"
)

// Constraint names that map to domain-specific conflict codes.
const (
	ConstraintAppointmentSlot = "appointments_doctor_slot_key"
)

// Translate converts store errors into the application error taxonomy.
// Already-typed errors pass through unchanged.
func Translate(op Op, err error) error {
	if err == nil {
		return nil
	}
	var typed *apperr.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &apperr.Error{Kind: apperr.KindNotFound, Code: apperr.CodeNotFound, Message: "record not found", Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			code := apperr.CodeConflict
			msg := "record already exists"
			if pgErr.ConstraintName == ConstraintAppointmentSlot {
				code = apperr.CodeSlotTaken
				msg = "the doctor already has an appointment in this slot"
			}
			return &apperr.Error{Kind: apperr.KindConflict, Code: code, Message: msg, Err: err}
		case codeForeignKeyViolation:
			if op == OpDelete {
				return &apperr.Error{Kind: apperr.KindConflict, Code: apperr.CodeConflict, Message: "record is still referenced", Err: err}
			}
			return &apperr.Error{
				Kind:    apperr.KindValidation,
				Code:    apperr.CodeValidation,
				Message: "referenced record does not exist",
				Fields:  map[string]string{columnOrConstraint(pgErr): "references a missing record"},
				Err:     err,
			}
		case codeCheckViolation, codeNotNullViolation:
			return &apperr.Error{
				Kind:    apperr.KindValidation,
				Code:    apperr.CodeValidation,
				Message: "validation failed",
				Fields:  map[string]string{columnOrConstraint(pgErr): "is invalid"},
				Err:     err,
			}
		case codeInsufficientPriv:
			return &apperr.Error{Kind: apperr.KindForbidden, Code: apperr.CodeForbidden, Message: "not permitted", Err: err}
		case codeTerminalStatus:
			return &apperr.Error{Kind: apperr.KindInvalidTransition, Code: apperr.CodeInvalidTransition, Message: pgErr.Message, Err: err}
		}
		// Class 08 (connection) and 57P (operator intervention) are retryable.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" || len(pgErr.Code) >= 3 && pgErr.Code[:3] == "57P" {
			return apperr.Transient(err)
		}
		return apperr.Internal(err)
	}

	if isTransient(err) {
		return apperr.Transient(err)
	}
	return apperr.Internal(err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

func columnOrConstraint(e *pgconn.PgError) string {
	if e.ColumnName != "" {
		return e.ColumnName
	}
	if e.ConstraintName != "" {
		return e.ConstraintName
	}
	return "record"
}
