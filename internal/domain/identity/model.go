package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/pkg/civil"
)

// Profile maps to the profiles table. Role is fixed at registration.
type Profile struct {
	ID                    uuid.UUID   `db:"id" json:"id"`
	UserID                uuid.UUID   `db:"user_id" json:"user_id"`
	FirstName             string      `db:"first_name" json:"first_name"`
	LastName              string      `db:"last_name" json:"last_name"`
	Role                  auth.Role   `db:"role" json:"role"`
	Phone                 *string     `db:"phone" json:"phone,omitempty"`
	Address               *string     `db:"address" json:"address,omitempty"`
	DateOfBirth           *civil.Date `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender                *string     `db:"gender" json:"gender,omitempty"`
	EmergencyContactName  *string     `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string     `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	CreatedAt             time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time   `db:"updated_at" json:"updated_at"`
}

func (p *Profile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// DoctorProfile maps to the doctor_profiles table and extends a doctor-role
// Profile one to one.
type DoctorProfile struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	ProfileID           uuid.UUID  `db:"profile_id" json:"profile_id"`
	DepartmentID        *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	Specialization      string     `db:"specialization" json:"specialization"`
	LicenseNumber       string     `db:"license_number" json:"license_number"`
	YearsOfExperience   int        `db:"years_of_experience" json:"years_of_experience"`
	ConsultationFee     *float64   `db:"consultation_fee" json:"consultation_fee,omitempty"`
	Bio                 *string    `db:"bio" json:"bio,omitempty"`
	AvailableDays       []string   `db:"available_days" json:"available_days"`
	AvailableHoursStart *string    `db:"available_hours_start" json:"available_hours_start,omitempty"`
	AvailableHoursEnd   *string    `db:"available_hours_end" json:"available_hours_end,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Doctor is a doctor profile joined with its profile names.
type Doctor struct {
	DoctorProfile
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// ProfileUpdate is the editable part of a profile. Nil fields are left
// untouched; role and user id are never editable.
type ProfileUpdate struct {
	FirstName             *string     `json:"first_name" validate:"omitnil,min=2,max=100"`
	LastName              *string     `json:"last_name" validate:"omitnil,min=2,max=100"`
	Phone                 *string     `json:"phone" validate:"omitnil,max=32"`
	Address               *string     `json:"address" validate:"omitnil,max=500"`
	DateOfBirth           *civil.Date `json:"date_of_birth"`
	Gender                *string     `json:"gender" validate:"omitnil,max=32"`
	EmergencyContactName  *string     `json:"emergency_contact_name" validate:"omitnil,max=200"`
	EmergencyContactPhone *string     `json:"emergency_contact_phone" validate:"omitnil,max=32"`
}

// DoctorInput carries the doctor-profile fields for provisioning and edits.
type DoctorInput struct {
	ProfileID           uuid.UUID  `json:"profile_id"`
	DepartmentID        *uuid.UUID `json:"department_id"`
	Specialization      string     `json:"specialization" validate:"required,min=2,max=120"`
	LicenseNumber       string     `json:"license_number" validate:"required,min=3,max=64"`
	YearsOfExperience   int        `json:"years_of_experience" validate:"gte=0,lte=80"`
	ConsultationFee     *float64   `json:"consultation_fee" validate:"omitnil,gte=0"`
	Bio                 *string    `json:"bio" validate:"omitnil,max=2000"`
	AvailableDays       []string   `json:"available_days" validate:"dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	AvailableHoursStart *string    `json:"available_hours_start" validate:"omitnil,datetime=15:04"`
	AvailableHoursEnd   *string    `json:"available_hours_end" validate:"omitnil,datetime=15:04"`
}

// DoctorUpdate edits a doctor's profile names and doctor profile together.
type DoctorUpdate struct {
	FirstName *string `json:"first_name" validate:"omitnil,min=2,max=100"`
	LastName  *string `json:"last_name" validate:"omitnil,min=2,max=100"`
	DoctorInput
}
