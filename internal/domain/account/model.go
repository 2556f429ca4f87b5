package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/domain/identity"
	"github.com/carepoint/hms/internal/platform/auth"
)

// User is a login identity. Every user owns exactly one profile.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SignupRequest registers a new user. Admin accounts are never
// self-selected.
type SignupRequest struct {
	Email     string    `json:"email" validate:"required,email,max=254"`
	Password  string    `json:"password" validate:"required,min=8,max=72"`
	FirstName string    `json:"first_name" validate:"required,min=2,max=100"`
	LastName  string    `json:"last_name" validate:"required,min=2,max=100"`
	Role      auth.Role `json:"role" validate:"required,oneof=patient doctor"`
}

type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned on sign-in.
type Session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Profile   *identity.Profile `json:"profile"`
}

// SessionInfo describes the current caller.
type SessionInfo struct {
	UserID    uuid.UUID  `json:"user_id"`
	ProfileID uuid.UUID  `json:"profile_id"`
	Role      auth.Role  `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
