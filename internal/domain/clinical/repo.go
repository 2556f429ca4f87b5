package clinical

import (
	"context"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/store"
)

// Repository defines the persistence interface for medical records.
type Repository interface {
	Create(ctx context.Context, rec store.Record) (*MedicalRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	List(ctx context.Context, q store.Query) ([]*MedicalRecord, int, error)
	AppointmentParties(ctx context.Context, appointmentID uuid.UUID) (*Parties, error)
	IsPatient(ctx context.Context, profileID uuid.UUID) (bool, error)
}
