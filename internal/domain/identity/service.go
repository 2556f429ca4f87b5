package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/store"
	"github.com/carepoint/hms/internal/platform/validate"
)

type Service struct {
	profiles ProfileRepository
	doctors  DoctorRepository
	tx       TxRunner
}

func NewService(profiles ProfileRepository, doctors DoctorRepository, tx TxRunner) *Service {
	return &Service{profiles: profiles, doctors: doctors, tx: tx}
}

// -- Profiles --

func (s *Service) Me(ctx context.Context, caller auth.Caller) (*Profile, error) {
	return s.profiles.GetByID(ctx, caller.ProfileID)
}

func (s *Service) UpdateMe(ctx context.Context, caller auth.Caller, in ProfileUpdate) (*Profile, error) {
	in.FirstName, in.LastName = trimmedName(in.FirstName), trimmedName(in.LastName)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	patch := profilePatch(in)
	if len(patch) == 0 {
		return s.profiles.GetByID(ctx, caller.ProfileID)
	}
	return s.profiles.Update(ctx, caller.ProfileID, patch)
}

// ListPatients returns patient profiles ordered by first name.
func (s *Service) ListPatients(ctx context.Context, caller auth.Caller, limit, offset int) ([]*Profile, int, error) {
	if caller.Is(auth.RolePatient) {
		return nil, 0, apperr.Forbidden("patients cannot list other patients")
	}
	return s.profiles.ListByRole(ctx, auth.RolePatient, limit, offset)
}

// -- Doctors --

func (s *Service) ListDoctors(ctx context.Context, departmentID *uuid.UUID) ([]*Doctor, error) {
	return s.doctors.List(ctx, departmentID)
}

func (s *Service) GetDoctor(ctx context.Context, profileID uuid.UUID) (*Doctor, error) {
	doc, err := s.doctors.GetByProfileID(ctx, profileID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("doctor")
	}
	return doc, err
}

// ProvisionDoctor attaches a doctor profile to an existing doctor-role
// profile. Admin only.
func (s *Service) ProvisionDoctor(ctx context.Context, caller auth.Caller, in DoctorInput) (*Doctor, error) {
	if !caller.Is(auth.RoleAdmin) {
		return nil, apperr.Forbidden("only admins can provision doctors")
	}
	if err := validateDoctorInput(in); err != nil {
		return nil, err
	}
	if in.ProfileID == uuid.Nil {
		return nil, apperr.Validation("profile_id", "is required")
	}

	var out *Doctor
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.profiles.GetByID(ctx, in.ProfileID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Validation("profile_id", "does not exist")
			}
			return err
		}
		if p.Role != auth.RoleDoctor {
			return apperr.Validation("profile_id", "must belong to a doctor account")
		}
		dp, err := s.doctors.Create(ctx, doctorProfileFrom(in))
		if err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict(apperr.CodeConflict, "doctor profile or license number already exists")
			}
			return err
		}
		out = &Doctor{DoctorProfile: *dp, FirstName: p.FirstName, LastName: p.LastName}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDoctor edits the doctor's names and doctor profile in a single
// transaction. Admins may edit anyone; doctors only themselves. Only admins
// assign departments, and an admin edit without department_id keeps the
// current one.
func (s *Service) UpdateDoctor(ctx context.Context, caller auth.Caller, profileID uuid.UUID, in DoctorUpdate) (*Doctor, error) {
	if !caller.Is(auth.RoleAdmin) && !(caller.Is(auth.RoleDoctor) && caller.ProfileID == profileID) {
		return nil, apperr.Forbidden("doctors can only edit their own profile")
	}
	in.FirstName, in.LastName = trimmedName(in.FirstName), trimmedName(in.LastName)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := validateHours(in.AvailableHoursStart, in.AvailableHoursEnd); err != nil {
		return nil, err
	}

	var out *Doctor
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		names := profilePatch(ProfileUpdate{FirstName: in.FirstName, LastName: in.LastName})
		if len(names) > 0 {
			if _, err := s.profiles.Update(ctx, profileID, names); err != nil {
				return err
			}
		}
		rec := doctorRecord(doctorProfileFrom(in.DoctorInput))
		if !caller.Is(auth.RoleAdmin) || in.DepartmentID == nil {
			delete(rec, "department_id")
		}
		if _, err := s.doctors.Update(ctx, profileID, rec); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict(apperr.CodeConflict, "license number already in use")
			}
			return err
		}
		doc, err := s.doctors.GetByProfileID(ctx, profileID)
		if err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validateDoctorInput(in DoctorInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if in.DepartmentID == nil || *in.DepartmentID == uuid.Nil {
		return apperr.Validation("department_id", "is required")
	}
	return validateHours(in.AvailableHoursStart, in.AvailableHoursEnd)
}

func trimmedName(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

// validateHours requires both ends of the window or neither, start first.
// Values are HH:MM so string order is time order.
func validateHours(start, end *string) error {
	switch {
	case start == nil && end == nil:
		return nil
	case start == nil:
		return apperr.Validation("available_hours_start", "is required when an end time is set")
	case end == nil:
		return apperr.Validation("available_hours_end", "is required when a start time is set")
	case *start >= *end:
		return apperr.Validation("available_hours_end", "must be after available_hours_start")
	}
	return nil
}

func doctorProfileFrom(in DoctorInput) *DoctorProfile {
	return &DoctorProfile{
		ProfileID:           in.ProfileID,
		DepartmentID:        in.DepartmentID,
		Specialization:      strings.TrimSpace(in.Specialization),
		LicenseNumber:       strings.TrimSpace(in.LicenseNumber),
		YearsOfExperience:   in.YearsOfExperience,
		ConsultationFee:     in.ConsultationFee,
		Bio:                 in.Bio,
		AvailableDays:       in.AvailableDays,
		AvailableHoursStart: in.AvailableHoursStart,
		AvailableHoursEnd:   in.AvailableHoursEnd,
	}
}

func profilePatch(in ProfileUpdate) store.Record {
	patch := store.Record{}
	set := func(col string, v *string) {
		if v != nil {
			patch[col] = strings.TrimSpace(*v)
		}
	}
	set("first_name", in.FirstName)
	set("last_name", in.LastName)
	set("phone", in.Phone)
	set("address", in.Address)
	set("gender", in.Gender)
	set("emergency_contact_name", in.EmergencyContactName)
	set("emergency_contact_phone", in.EmergencyContactPhone)
	if in.DateOfBirth != nil {
		patch["date_of_birth"] = *in.DateOfBirth
	}
	return patch
}
