package account

import (
	"context"
)

// UserRepository defines the persistence interface for users.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
