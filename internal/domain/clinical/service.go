package clinical

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/store"
	"github.com/carepoint/hms/internal/platform/validate"
)

const minClinicalTextLen = 5

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "clinical").Logger()}
}

// Create appends a record authored by the calling doctor.
func (s *Service) Create(ctx context.Context, caller auth.Caller, in RecordInput) (*MedicalRecord, error) {
	if !caller.Is(auth.RoleDoctor) {
		return nil, apperr.Forbidden("only doctors can create medical records")
	}
	in.Diagnosis = strings.TrimSpace(in.Diagnosis)
	in.Treatment = strings.TrimSpace(in.Treatment)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	fe := apperr.FieldErrors{}
	if in.PatientID == uuid.Nil {
		fe.Add("patient_id", "is required")
	}
	fe.MinLen("diagnosis", in.Diagnosis, minClinicalTextLen)
	fe.MinLen("treatment", in.Treatment, minClinicalTextLen)
	if err := fe.Err(); err != nil {
		return nil, err
	}

	ok, err := s.repo.IsPatient(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("patient_id", "must reference a patient")
	}
	if in.AppointmentID != nil {
		if err := s.checkAppointment(ctx, caller, in); err != nil {
			return nil, err
		}
	}

	rec := store.Record{
		"patient_id":     in.PatientID,
		"doctor_id":      caller.ProfileID,
		"appointment_id": in.AppointmentID,
		"diagnosis":      in.Diagnosis,
		"treatment":      in.Treatment,
		"medications":    trimmed(in.Medications),
		"notes":          trimmed(in.Notes),
	}
	if !in.Vitals.empty() {
		rec["vitals"] = in.Vitals
	}
	r, err := s.repo.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("record_id", r.ID.String()).
		Str("patient_id", r.PatientID.String()).
		Str("doctor_id", r.DoctorID.String()).
		Msg("medical record created")
	return r, nil
}

// checkAppointment requires a linked appointment to be between the same
// doctor and patient.
func (s *Service) checkAppointment(ctx context.Context, caller auth.Caller, in RecordInput) error {
	p, err := s.repo.AppointmentParties(ctx, *in.AppointmentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Validation("appointment_id", "does not exist")
		}
		return err
	}
	if p.DoctorID != caller.ProfileID || p.PatientID != in.PatientID {
		return apperr.Validation("appointment_id", "must be an appointment between this doctor and patient")
	}
	return nil
}

// List returns records newest first. Patients see their own records,
// doctors the ones they authored, admins all. patientID narrows further.
func (s *Service) List(ctx context.Context, caller auth.Caller, patientID *uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	var filters []store.Filter
	switch caller.Role {
	case auth.RolePatient:
		if patientID != nil && *patientID != caller.ProfileID {
			return nil, 0, apperr.Forbidden("patients can only view their own records")
		}
		filters = append(filters, store.Where("patient_id", caller.ProfileID))
	case auth.RoleDoctor:
		filters = append(filters, store.Where("doctor_id", caller.ProfileID))
		if patientID != nil {
			filters = append(filters, store.Where("patient_id", *patientID))
		}
	case auth.RoleAdmin:
		if patientID != nil {
			filters = append(filters, store.Where("patient_id", *patientID))
		}
	default:
		return nil, 0, apperr.Forbidden("unknown role")
	}
	return s.repo.List(ctx, store.Query{
		Filters: filters,
		Order:   []store.Order{store.Desc("created_at")},
		Limit:   limit,
		Offset:  offset,
	})
}

// Get returns a record in the caller's scope; anything else is not found.
func (s *Service) Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*MedicalRecord, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("medical record")
		}
		return nil, err
	}
	visible := caller.Is(auth.RoleAdmin) ||
		(caller.Is(auth.RoleDoctor) && r.DoctorID == caller.ProfileID) ||
		(caller.Is(auth.RolePatient) && r.PatientID == caller.ProfileID)
	if !visible {
		return nil, apperr.NotFound("medical record")
	}
	return r, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
