package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/store"
)

var documentsTable = store.Table{
	Name: "medical_documents",
	Columns: []string{
		"id", "patient_id", "file_name", "file_path", "file_size", "file_type",
		"description", "uploaded_by", "created_at",
	},
}

var profileRoles = store.Table{Name: "profiles", Columns: []string{"id", "role"}}

type documentRepoPG struct {
	db *store.Client
}

func NewRepo(c *store.Client) Repository {
	return &documentRepoPG{db: c}
}

func (r *documentRepoPG) Create(ctx context.Context, rec store.Record) (*Document, error) {
	return store.Insert[Document](ctx, r.db, documentsTable, rec)
}

func (r *documentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	return store.Get[Document](ctx, r.db, documentsTable, id)
}

func (r *documentRepoPG) List(ctx context.Context, q store.Query) ([]*Document, int, error) {
	total, err := store.Count(ctx, r.db, documentsTable, q.Filters...)
	if err != nil {
		return nil, 0, err
	}
	items, err := store.List[Document](ctx, r.db, documentsTable, q)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *documentRepoPG) IsPatient(ctx context.Context, profileID uuid.UUID) (bool, error) {
	return store.Exists(ctx, r.db, profileRoles,
		store.Where("id", profileID), store.Where("role", string(auth.RolePatient)))
}
