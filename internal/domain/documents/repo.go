package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/store"
)

type Repository interface {
	Create(ctx context.Context, rec store.Record) (*Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context, q store.Query) ([]*Document, int, error)
	IsPatient(ctx context.Context, profileID uuid.UUID) (bool, error)
}
