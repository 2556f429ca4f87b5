package admin

import (
	"time"

	"github.com/google/uuid"
)

// Department maps to the departments table. Names are unique.
type Department struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Description  *string    `db:"description" json:"description,omitempty"`
	HeadDoctorID *uuid.UUID `db:"head_doctor_id" json:"head_doctor_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

type DepartmentInput struct {
	Name         string     `json:"name" validate:"required,min=2,max=120"`
	Description  *string    `json:"description" validate:"omitnil,max=2000"`
	HeadDoctorID *uuid.UUID `json:"head_doctor_id"`
}
