package account

import (
	"context"

	"github.com/carepoint/hms/internal/platform/store"
)

var usersTable = store.Table{
	Name:    "users",
	Columns: []string{"id", "email", "password_hash", "created_at"},
}

type userRepoPG struct {
	db *store.Client
}

func NewUserRepo(c *store.Client) UserRepository {
	return &userRepoPG{db: c}
}

func (r *userRepoPG) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	return store.Insert[User](ctx, r.db, usersTable, store.Record{
		"email":         email,
		"password_hash": passwordHash,
	})
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return store.First[User](ctx, r.db, usersTable, store.Where("email", email))
}
