package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidTransition Kind = "invalid_transition"
	KindTransient         Kind = "transient"
	KindInternal          Kind = "internal"
)

// Common error codes returned in the response envelope.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeConflict          = "CONFLICT"
	CodeSlotTaken         = "SLOT_TAKEN"
	CodeDepartmentInUse   = "DEPARTMENT_IN_USE"
	CodeNotFound          = "RESOURCE_NOT_FOUND"
	CodeForbidden         = "INSUFFICIENT_PERMISSIONS"
	CodeUnauthorized      = "USER_NOT_AUTHENTICATED"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeTransient         = "SERVICE_UNAVAILABLE"
	CodeTimeout           = "REQUEST_TIMEOUT"
	CodeInternal          = "INTERNAL_ERROR"
)

// HTTPStatus maps the kind to the response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInvalidTransition:
		return http.StatusUnprocessableEntity
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a client may safely repeat the call.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// Error is the typed error returned across service and store boundaries.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Fields holds per-field messages for validation errors, keyed by JSON name.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target carrying a code only
// matches errors with that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrTransient         = &Error{Kind: KindTransient}
)

func Validation(field, msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: "validation failed",
		Fields:  map[string]string{field: msg},
	}
}

func Conflict(code, msg string) *Error {
	if code == "" {
		code = CodeConflict
	}
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: resource + " not found"}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: msg}
}

func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Code: CodeTransient, Message: "temporarily unavailable, retry the request", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns err as *Error, wrapping untyped errors as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
