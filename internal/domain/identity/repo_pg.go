package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/db"
	"github.com/carepoint/hms/internal/platform/store"
)

var profilesTable = store.Table{
	Name: "profiles",
	Columns: []string{
		"id", "user_id", "first_name", "last_name", "role", "phone", "address",
		"date_of_birth", "gender", "emergency_contact_name", "emergency_contact_phone",
		"created_at", "updated_at",
	},
	Touch: "updated_at",
}

var doctorProfilesTable = store.Table{
	Name: "doctor_profiles",
	Columns: []string{
		"id", "profile_id", "department_id", "specialization", "license_number",
		"years_of_experience", "consultation_fee", "bio", "available_days",
		"available_hours_start", "available_hours_end", "created_at", "updated_at",
	},
	Touch: "updated_at",
}

// -- Profile Repository --

type profileRepoPG struct {
	db *store.Client
}

func NewProfileRepo(c *store.Client) ProfileRepository {
	return &profileRepoPG{db: c}
}

func (r *profileRepoPG) Create(ctx context.Context, p *Profile) (*Profile, error) {
	rec := store.Record{
		"user_id":    p.UserID,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"role":       string(p.Role),
	}
	if p.Phone != nil {
		rec["phone"] = *p.Phone
	}
	return store.Insert[Profile](ctx, r.db, profilesTable, rec)
}

func (r *profileRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return store.Get[Profile](ctx, r.db, profilesTable, id)
}

func (r *profileRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return store.First[Profile](ctx, r.db, profilesTable, store.Where("user_id", userID))
}

func (r *profileRepoPG) Update(ctx context.Context, id uuid.UUID, patch store.Record) (*Profile, error) {
	return store.Update[Profile](ctx, r.db, profilesTable, id, patch)
}

func (r *profileRepoPG) ListByRole(ctx context.Context, role auth.Role, limit, offset int) ([]*Profile, int, error) {
	byRole := store.Where("role", string(role))
	total, err := store.Count(ctx, r.db, profilesTable, byRole)
	if err != nil {
		return nil, 0, err
	}
	items, err := store.List[Profile](ctx, r.db, profilesTable, store.Query{
		Filters: []store.Filter{byRole},
		Order:   []store.Order{store.Asc("first_name"), store.Asc("last_name")},
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// -- Doctor Repository --

type doctorRepoPG struct {
	db *store.Client
}

func NewDoctorRepo(c *store.Client) DoctorRepository {
	return &doctorRepoPG{db: c}
}

const doctorColumns = `d.id, d.profile_id, d.department_id, d.specialization, d.license_number,
	d.years_of_experience, d.consultation_fee, d.bio, d.available_days,
	d.available_hours_start, d.available_hours_end, d.created_at, d.updated_at,
	p.first_name, p.last_name`

func (r *doctorRepoPG) Create(ctx context.Context, d *DoctorProfile) (*DoctorProfile, error) {
	rec := doctorRecord(d)
	rec["profile_id"] = d.ProfileID
	return store.Insert[DoctorProfile](ctx, r.db, doctorProfilesTable, rec)
}

func (r *doctorRepoPG) GetByProfileID(ctx context.Context, profileID uuid.UUID) (*Doctor, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT `+doctorColumns+`
		FROM doctor_profiles d JOIN profiles p ON p.id = d.profile_id
		WHERE d.profile_id = $1`, profileID)
	if err != nil {
		return nil, db.Translate(db.OpRead, err)
	}
	doc, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Doctor])
	if err != nil {
		return nil, db.Translate(db.OpRead, err)
	}
	return doc, nil
}

// Update edits the doctor profile row keyed by profile id.
func (r *doctorRepoPG) Update(ctx context.Context, profileID uuid.UUID, patch store.Record) (*DoctorProfile, error) {
	existing, err := store.First[DoctorProfile](ctx, r.db, doctorProfilesTable, store.Where("profile_id", profileID))
	if err != nil {
		return nil, err
	}
	return store.Update[DoctorProfile](ctx, r.db, doctorProfilesTable, existing.ID, patch)
}

func (r *doctorRepoPG) List(ctx context.Context, departmentID *uuid.UUID) ([]*Doctor, error) {
	query := `SELECT ` + doctorColumns + `
		FROM doctor_profiles d JOIN profiles p ON p.id = d.profile_id`
	var args []any
	if departmentID != nil {
		query += ` WHERE d.department_id = $1`
		args = append(args, *departmentID)
	}
	query += ` ORDER BY p.last_name, p.first_name`

	rows, err := r.db.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, db.Translate(db.OpRead, err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Doctor])
	if err != nil {
		return nil, db.Translate(db.OpRead, err)
	}
	return docs, nil
}

func doctorRecord(d *DoctorProfile) store.Record {
	days := d.AvailableDays
	if days == nil {
		days = []string{}
	}
	return store.Record{
		"department_id":         d.DepartmentID,
		"specialization":        d.Specialization,
		"license_number":        d.LicenseNumber,
		"years_of_experience":   d.YearsOfExperience,
		"consultation_fee":      d.ConsultationFee,
		"bio":                   d.Bio,
		"available_days":        days,
		"available_hours_start": d.AvailableHoursStart,
		"available_hours_end":   d.AvailableHoursEnd,
	}
}
