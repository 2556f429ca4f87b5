package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/store"
)

var departmentsTable = store.Table{
	Name:    "departments",
	Columns: []string{"id", "name", "description", "head_doctor_id", "created_at", "updated_at"},
	Touch:   "updated_at",
}

// Referencing tables, restricted to the columns the checks read.
var (
	doctorRefs      = store.Table{Name: "doctor_profiles", Columns: []string{"department_id"}}
	appointmentRefs = store.Table{Name: "appointments", Columns: []string{"department_id"}}
	profileRoles    = store.Table{Name: "profiles", Columns: []string{"id", "role"}}
)

type departmentRepoPG struct {
	db *store.Client
}

func NewDepartmentRepo(c *store.Client) DepartmentRepository {
	return &departmentRepoPG{db: c}
}

func (r *departmentRepoPG) Create(ctx context.Context, rec store.Record) (*Department, error) {
	return store.Insert[Department](ctx, r.db, departmentsTable, rec)
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	return store.Get[Department](ctx, r.db, departmentsTable, id)
}

func (r *departmentRepoPG) List(ctx context.Context) ([]*Department, error) {
	return store.List[Department](ctx, r.db, departmentsTable, store.Query{
		Order: []store.Order{store.Asc("name")},
	})
}

func (r *departmentRepoPG) Update(ctx context.Context, id uuid.UUID, patch store.Record) (*Department, error) {
	return store.Update[Department](ctx, r.db, departmentsTable, id, patch)
}

func (r *departmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return store.Delete(ctx, r.db, departmentsTable, id)
}

func (r *departmentRepoPG) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	for _, t := range []store.Table{doctorRefs, appointmentRefs} {
		ok, err := store.Exists(ctx, r.db, t, store.Where("department_id", id))
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (r *departmentRepoPG) IsDoctor(ctx context.Context, profileID uuid.UUID) (bool, error) {
	return store.Exists(ctx, r.db, profileRoles,
		store.Where("id", profileID), store.Where("role", string(auth.RoleDoctor)))
}
