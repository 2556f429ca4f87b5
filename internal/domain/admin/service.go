package admin

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

var errInUse = apperr.Conflict(apperr.CodeDepartmentInUse, "department still has doctors or appointments")

type Service struct {
	repo DepartmentRepository
}

func NewService(repo DepartmentRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]*Department, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Department, error) {
	d, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("department")
	}
	return d, err
}

func (s *Service) Create(ctx context.Context, caller auth.Caller, in DepartmentInput) (*Department, error) {
	rec, err := s.record(ctx, caller, in)
	if err != nil {
		return nil, err
	}
	d, err := s.repo.Create(ctx, rec)
	return d, nameConflict(err)
}

// Update replaces the department's editable fields.
func (s *Service) Update(ctx context.Context, caller auth.Caller, id uuid.UUID, in DepartmentInput) (*Department, error) {
	rec, err := s.record(ctx, caller, in)
	if err != nil {
		return nil, err
	}
	d, err := s.repo.Update(ctx, id, rec)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("department")
	}
	return d, nameConflict(err)
}

// Delete removes a department that nothing references. The caller must
// confirm explicitly.
func (s *Service) Delete(ctx context.Context, caller auth.Caller, id uuid.UUID, confirmed bool) error {
	if !caller.Is(auth.RoleAdmin) {
		return apperr.Forbidden("only admins can delete departments")
	}
	if !confirmed {
		return apperr.Validation("confirm", "must be true to delete a department")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	inUse, err := s.repo.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return errInUse
	}
	err = s.repo.Delete(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrConflict):
		// A doctor or appointment was attached after the check.
		return errInUse
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.NotFound("department")
	}
	return err
}

func (s *Service) record(ctx context.Context, caller auth.Caller, in DepartmentInput) (store.Record, error) {
	if !caller.Is(auth.RoleAdmin) {
		return nil, apperr.Forbidden("only admins can manage departments")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.HeadDoctorID != nil {
		ok, err := s.repo.IsDoctor(ctx, *in.HeadDoctorID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Validation("head_doctor_id", "must reference a doctor")
		}
	}
	rec := store.Record{
		"name":           in.Name,
		"description":    in.Description,
		"head_doctor_id": in.HeadDoctorID,
	}
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		rec["description"] = &trimmed
	}
	return rec, nil
}

func nameConflict(err error) error {
	if errors.Is(err, apperr.ErrConflict) {
		return apperr.Conflict(apperr.CodeConflict, "a department with this name already exists")
	}
	return err
}
