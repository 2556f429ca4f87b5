package scheduling

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/db"
	"github.com/carepoint/hms/internal/platform/store"
	"github.com/carepoint/hms/pkg/civil"
)

var appointmentsTable = store.Table{
	Name: "appointments",
	Columns: []string{
		"id", "patient_id", "doctor_id", "department_id", "appointment_date",
		"appointment_time", "reason_for_visit", "status", "notes", "prescription",
		"created_at", "updated_at",
	},
	Touch: "updated_at",
}

var doctorSchedules = store.Table{
	Name:    "doctor_profiles",
	Columns: []string{"profile_id", "department_id", "available_days", "available_hours_start", "available_hours_end"},
	Key:     "profile_id",
}

var profileRoles = store.Table{Name: "profiles", Columns: []string{"id", "role"}}

type appointmentRepoPG struct {
	db *store.Client
}

func NewRepo(c *store.Client) Repository {
	return &appointmentRepoPG{db: c}
}

func (r *appointmentRepoPG) Create(ctx context.Context, rec store.Record) (*Appointment, error) {
	return store.Insert[Appointment](ctx, r.db, appointmentsTable, rec)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return store.Get[Appointment](ctx, r.db, appointmentsTable, id)
}

func (r *appointmentRepoPG) List(ctx context.Context, q store.Query) ([]*Appointment, int, error) {
	total, err := store.Count(ctx, r.db, appointmentsTable, q.Filters...)
	if err != nil {
		return nil, 0, err
	}
	items, err := store.List[Appointment](ctx, r.db, appointmentsTable, q)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	return store.Update[Appointment](ctx, r.db, appointmentsTable, id,
		store.Record{"status": string(to)},
		store.Where("status", string(from)))
}

func (r *appointmentRepoPG) UpdateVisit(ctx context.Context, id uuid.UUID, patch store.Record) (*Appointment, error) {
	return store.Update[Appointment](ctx, r.db, appointmentsTable, id, patch)
}

func (r *appointmentRepoPG) BookedSlots(ctx context.Context, doctorID uuid.UUID, date civil.Date) ([]string, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT booked_slots($1, $2)`, doctorID, date)
	if err != nil {
		return nil, db.Translate(db.OpRead, err)
	}
	slots, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, db.Translate(db.OpRead, err)
	}
	return slots, nil
}

type directoryPG struct {
	db *store.Client
}

func NewDoctorDirectory(c *store.Client) DoctorDirectory {
	return &directoryPG{db: c}
}

func (d *directoryPG) Schedule(ctx context.Context, doctorID uuid.UUID) (*DoctorSchedule, error) {
	return store.Get[DoctorSchedule](ctx, d.db, doctorSchedules, doctorID)
}

func (d *directoryPG) IsPatient(ctx context.Context, profileID uuid.UUID) (bool, error) {
	return store.Exists(ctx, d.db, profileRoles,
		store.Where("id", profileID), store.Where("role", string(auth.RolePatient)))
}
