package apperr

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// FieldErrors accumulates per-field validation messages.
type FieldErrors map[string]string

func (f FieldErrors) Add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

// Required flags blank strings.
func (f FieldErrors) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		f.Add(field, "is required")
		return false
	}
	return true
}

// MinLen counts runes of the trimmed value.
func (f FieldErrors) MinLen(field, value string, n int) bool {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < n {
		f.Add(field, fmt.Sprintf("must be at least %d characters", n))
		return false
	}
	return true
}

func (f FieldErrors) NonNegative(field string, value float64) bool {
	if value < 0 {
		f.Add(field, "must be zero or greater")
		return false
	}
	return true
}

func (f FieldErrors) Email(field, value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		f.Add(field, "must be a valid email address")
		return false
	}
	return true
}

// Err returns nil when no field failed.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: "validation failed",
		Fields:  map[string]string(f),
	}
}
