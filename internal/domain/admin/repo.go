package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/store"
)

// DepartmentRepository defines the persistence interface for departments.
type DepartmentRepository interface {
	Create(ctx context.Context, rec store.Record) (*Department, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	List(ctx context.Context) ([]*Department, error)
	Update(ctx context.Context, id uuid.UUID, patch store.Record) (*Department, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// InUse reports whether doctors or appointments still reference the
	// department.
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
	// IsDoctor reports whether profileID is a doctor-role profile.
	IsDoctor(ctx context.Context, profileID uuid.UUID) (bool, error)
}
