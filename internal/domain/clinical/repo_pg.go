package clinical

import (
	"context"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/store"
)

var recordsTable = store.Table{
	Name: "medical_records",
	Columns: []string{
		"id", "patient_id", "doctor_id", "appointment_id", "diagnosis", "treatment",
		"medications", "notes", "vitals", "created_at", "updated_at",
	},
	Touch: "updated_at",
}

var (
	appointmentParties = store.Table{Name: "appointments", Columns: []string{"id", "patient_id", "doctor_id"}}
	profileRoles       = store.Table{Name: "profiles", Columns: []string{"id", "role"}}
)

type recordRepoPG struct {
	db *store.Client
}

func NewRepo(c *store.Client) Repository {
	return &recordRepoPG{db: c}
}

func (r *recordRepoPG) Create(ctx context.Context, rec store.Record) (*MedicalRecord, error) {
	return store.Insert[MedicalRecord](ctx, r.db, recordsTable, rec)
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return store.Get[MedicalRecord](ctx, r.db, recordsTable, id)
}

func (r *recordRepoPG) List(ctx context.Context, q store.Query) ([]*MedicalRecord, int, error) {
	total, err := store.Count(ctx, r.db, recordsTable, q.Filters...)
	if err != nil {
		return nil, 0, err
	}
	items, err := store.List[MedicalRecord](ctx, r.db, recordsTable, q)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *recordRepoPG) AppointmentParties(ctx context.Context, appointmentID uuid.UUID) (*Parties, error) {
	return store.Get[Parties](ctx, r.db, appointmentParties, appointmentID)
}

func (r *recordRepoPG) IsPatient(ctx context.Context, profileID uuid.UUID) (bool, error) {
	return store.Exists(ctx, r.db, profileRoles,
		store.Where("id", profileID), store.Where("role", string(auth.RolePatient)))
}
