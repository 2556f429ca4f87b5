package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/store"
)

// ProfileRepository defines the persistence interface for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) (*Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, id uuid.UUID, patch store.Record) (*Profile, error)
	ListByRole(ctx context.Context, role auth.Role, limit, offset int) ([]*Profile, int, error)
}

// DoctorRepository defines the persistence interface for doctor profiles.
type DoctorRepository interface {
	Create(ctx context.Context, d *DoctorProfile) (*DoctorProfile, error)
	GetByProfileID(ctx context.Context, profileID uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, profileID uuid.UUID, patch store.Record) (*DoctorProfile, error)
	List(ctx context.Context, departmentID *uuid.UUID) ([]*Doctor, error)
}

// TxRunner runs fn in one store transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
