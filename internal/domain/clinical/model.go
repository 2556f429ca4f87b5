package clinical

import (
	"time"

	"github.com/google/uuid"
)

// Vitals is the optional measurement block of a record, stored as JSONB.
type Vitals struct {
	BloodPressure *string `json:"blood_pressure,omitempty" validate:"omitnil,max=20"`
	HeartRate     *string `json:"heart_rate,omitempty" validate:"omitnil,max=10"`
	Temperature   *string `json:"temperature,omitempty" validate:"omitnil,max=10"`
	Weight        *string `json:"weight,omitempty" validate:"omitnil,max=10"`
	Height        *string `json:"height,omitempty" validate:"omitnil,max=10"`
}

func (v *Vitals) empty() bool {
	return v == nil || (v.BloodPressure == nil && v.HeartRate == nil && v.Temperature == nil &&
		v.Weight == nil && v.Height == nil)
}

// MedicalRecord maps to the medical_records table. Records are append-only.
type MedicalRecord struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Diagnosis     string     `db:"diagnosis" json:"diagnosis"`
	Treatment     string     `db:"treatment" json:"treatment"`
	Medications   *string    `db:"medications" json:"medications,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	Vitals        *Vitals    `db:"vitals" json:"vitals,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type RecordInput struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	Diagnosis     string     `json:"diagnosis" validate:"max=5000"`
	Treatment     string     `json:"treatment" validate:"max=5000"`
	Medications   *string    `json:"medications" validate:"omitnil,max=5000"`
	Notes         *string    `json:"notes" validate:"omitnil,max=5000"`
	Vitals        *Vitals    `json:"vitals" validate:"omitnil"`
}

// Parties are the patient and doctor an appointment belongs to.
type Parties struct {
	ID        uuid.UUID `db:"id"`
	PatientID uuid.UUID `db:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id"`
}
