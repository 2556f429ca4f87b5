package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/store"
	"github.com/carepoint/hms/pkg/civil"
)

// Repository defines the persistence interface for appointments.
type Repository interface {
	Create(ctx context.Context, rec store.Record) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, q store.Query) ([]*Appointment, int, error)
	// UpdateStatus moves the row only while it still has status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	UpdateVisit(ctx context.Context, id uuid.UUID, patch store.Record) (*Appointment, error)
	// BookedSlots returns the taken slot times for a doctor and day across
	// all patients.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date civil.Date) ([]string, error)
}

// DoctorDirectory reads the parties a booking refers to.
type DoctorDirectory interface {
	Schedule(ctx context.Context, doctorID uuid.UUID) (*DoctorSchedule, error)
	IsPatient(ctx context.Context, profileID uuid.UUID) (bool, error)
}
