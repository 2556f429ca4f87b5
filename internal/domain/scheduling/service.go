package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/metrics"
	"github.com/carepoint/hms/internal/platform/store"
	"github.com/carepoint/hms/internal/platform/validate"
	"github.com/carepoint/hms/pkg/civil"
)

type Service struct {
	repo    Repository
	doctors DoctorDirectory
	metrics *metrics.SchedulingMetrics
	logger  zerolog.Logger
	tracer  trace.Tracer
	loc     *time.Location
	now     func() time.Time
}

// NewService wires the appointment workflow. loc decides which calendar
// day counts as today.
func NewService(repo Repository, doctors DoctorDirectory, m *metrics.SchedulingMetrics, logger zerolog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:    repo,
		doctors: doctors,
		metrics: m,
		logger:  logger.With().Str("component", "scheduling").Logger(),
		tracer:  otel.Tracer("github.com/carepoint/hms/internal/domain/scheduling"),
		loc:     loc,
		now:     time.Now,
	}
}

func (s *Service) today() civil.Date {
	return civil.Today(s.now(), s.loc)
}

// Book inserts a scheduled appointment. The partial unique index on
// (doctor, date, time) is authoritative; the booked-slot lookup only
// rejects the common case early.
func (s *Service) Book(ctx context.Context, caller auth.Caller, req BookRequest) (appt *Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.Book", trace.WithAttributes(
		attribute.String("doctor_id", req.DoctorID.String()),
		attribute.String("appointment_date", req.AppointmentDate.String()),
		attribute.String("appointment_time", req.AppointmentTime),
	))
	defer func() {
		s.metrics.ObserveBooking(bookingOutcome(err))
		endSpan(span, err)
	}()

	patientID, err := s.bookingPatient(ctx, caller, req.PatientID)
	if err != nil {
		return nil, err
	}
	req.ReasonForVisit = strings.TrimSpace(req.ReasonForVisit)
	if err := s.validateBooking(req); err != nil {
		return nil, err
	}

	sched, err := s.doctors.Schedule(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Validation("doctor_id", "does not exist")
		}
		return nil, err
	}
	if err := checkSchedule(sched, req); err != nil {
		return nil, err
	}

	taken, err := s.repo.BookedSlots(ctx, req.DoctorID, req.AppointmentDate)
	if err != nil {
		return nil, err
	}
	for _, t := range taken {
		if t == req.AppointmentTime {
			return nil, errSlotTaken
		}
	}

	appt, err = s.repo.Create(ctx, store.Record{
		"patient_id":       patientID,
		"doctor_id":        req.DoctorID,
		"department_id":    req.DepartmentID,
		"appointment_date": req.AppointmentDate,
		"appointment_time": req.AppointmentTime,
		"reason_for_visit": req.ReasonForVisit,
		"status":           string(StatusScheduled),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", appt.DoctorID.String()).
		Str("date", appt.AppointmentDate.String()).
		Str("time", appt.AppointmentTime).
		Msg("appointment booked")
	return appt, nil
}

var errSlotTaken = apperr.Conflict(apperr.CodeSlotTaken, "the doctor already has an appointment in this slot")

// bookingPatient resolves whom the appointment is for. Patients book for
// themselves, admins on behalf of a patient; doctors cannot book.
func (s *Service) bookingPatient(ctx context.Context, caller auth.Caller, requested *uuid.UUID) (uuid.UUID, error) {
	switch caller.Role {
	case auth.RolePatient:
		if requested != nil && *requested != caller.ProfileID {
			return uuid.Nil, apperr.Forbidden("patients can only book for themselves")
		}
		return caller.ProfileID, nil
	case auth.RoleAdmin:
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, apperr.Validation("patient_id", "is required when booking on behalf of a patient")
		}
		ok, err := s.doctors.IsPatient(ctx, *requested)
		if err != nil {
			return uuid.Nil, err
		}
		if !ok {
			return uuid.Nil, apperr.Validation("patient_id", "must reference a patient")
		}
		return *requested, nil
	default:
		return uuid.Nil, apperr.Forbidden("doctors cannot book appointments")
	}
}

// validateBooking checks the request fields, then the calendar rules that
// depend on the clinic clock and the slot grid.
func (s *Service) validateBooking(req BookRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	fe := apperr.FieldErrors{}
	if req.AppointmentDate.Before(s.today()) {
		fe.Add("appointment_date", "cannot be in the past")
	}
	if !IsSlot(req.AppointmentTime) {
		fe.Add("appointment_time", "must be one of: "+strings.Join(Slots, ", "))
	}
	return fe.Err()
}

func checkSchedule(sched *DoctorSchedule, req BookRequest) error {
	if sched.DepartmentID == nil || *sched.DepartmentID != req.DepartmentID {
		return apperr.Validation("doctor_id", "does not belong to the selected department")
	}
	if day := req.AppointmentDate.Weekday(); !sched.WorksOn(day) {
		return apperr.Validation("appointment_date", "the doctor is not available on "+day.String())
	}
	if !sched.Covers(req.AppointmentTime) {
		return apperr.Validation("appointment_time", "is outside the doctor's available hours")
	}
	return nil
}

// List returns the caller's appointments: patients and doctors see their
// own, admins see all.
func (s *Service) List(ctx context.Context, caller auth.Caller, f ListFilter) ([]*Appointment, int, error) {
	filters := scopeFilters(caller)
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, 0, apperr.Validation("status", "must be one of: scheduled completed cancelled no_show")
		}
		filters = append(filters, store.Where("status", string(f.Status)))
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, apperr.Validation("to", "must not be before from")
	}
	if f.From != nil {
		filters = append(filters, store.Filter{Column: "appointment_date", Op: store.Gte, Value: *f.From})
	}
	if f.To != nil {
		filters = append(filters, store.Filter{Column: "appointment_date", Op: store.Lte, Value: *f.To})
	}

	var order []store.Order
	switch f.View {
	case ViewList, "":
		order = []store.Order{store.Desc("appointment_date"), store.Desc("appointment_time")}
	case ViewCalendar:
		order = []store.Order{store.Asc("appointment_date"), store.Asc("appointment_time")}
	default:
		return nil, 0, apperr.Validation("view", "must be list or calendar")
	}

	return s.repo.List(ctx, store.Query{Filters: filters, Order: order, Limit: f.Limit, Offset: f.Offset})
}

func scopeFilters(caller auth.Caller) []store.Filter {
	switch caller.Role {
	case auth.RolePatient:
		return []store.Filter{store.Where("patient_id", caller.ProfileID)}
	case auth.RoleDoctor:
		return []store.Filter{store.Where("doctor_id", caller.ProfileID)}
	case auth.RoleAdmin:
		return nil
	}
	// Unknown roles match nothing.
	return []store.Filter{store.Where("id", uuid.Nil)}
}

func inScope(caller auth.Caller, a *Appointment) bool {
	switch caller.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleDoctor:
		return a.DoctorID == caller.ProfileID
	case auth.RolePatient:
		return a.PatientID == caller.ProfileID
	}
	return false
}

// Get returns one appointment. Appointments outside the caller's scope
// are reported as not found.
func (s *Service) Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("appointment")
		}
		return nil, err
	}
	if !inScope(caller, a) {
		return nil, apperr.NotFound("appointment")
	}
	return a, nil
}

// Transition moves a scheduled appointment to a terminal status.
func (s *Service) Transition(ctx context.Context, caller auth.Caller, id uuid.UUID, to Status) (appt *Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.Transition", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
		attribute.String("to", string(to)),
	))
	defer func() {
		s.metrics.ObserveTransition(string(to), transitionOutcome(err))
		endSpan(span, err)
	}()

	current, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(caller.Role, current.Status, to); err != nil {
		return nil, err
	}

	appt, err = s.repo.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Another request moved it first; every move out of scheduled
			// is terminal.
			return nil, apperr.InvalidTransition(string(current.Status), string(to))
		}
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Str("caller_role", string(caller.Role)).
		Msg("appointment status changed")
	return appt, nil
}

// RecordVisit stores the doctor's notes and prescription on their own
// scheduled or completed appointment.
func (s *Service) RecordVisit(ctx context.Context, caller auth.Caller, id uuid.UUID, in VisitUpdate) (*Appointment, error) {
	if !caller.Is(auth.RoleDoctor) {
		return nil, apperr.Forbidden("only the treating doctor can record visit notes")
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	patch := store.Record{}
	if in.Notes != nil {
		patch["notes"] = strings.TrimSpace(*in.Notes)
	}
	if in.Prescription != nil {
		patch["prescription"] = strings.TrimSpace(*in.Prescription)
	}
	if len(patch) == 0 {
		return nil, apperr.Validation("notes", "notes or prescription is required")
	}

	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled && a.Status != StatusCompleted {
		return nil, apperr.Validation("status", fmt.Sprintf("visit notes cannot be recorded on a %s appointment", a.Status))
	}
	return s.repo.UpdateVisit(ctx, id, patch)
}

// Availability lists every slot of the day with whether it can still be
// booked with the doctor.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date civil.Date) (*Availability, error) {
	if date.IsZero() {
		return nil, apperr.Validation("date", "is required")
	}
	sched, err := s.doctors.Schedule(ctx, doctorID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("doctor")
		}
		return nil, err
	}

	out := &Availability{DoctorID: doctorID, Date: date, Slots: make([]SlotState, 0, len(Slots))}
	open := !date.Before(s.today()) && sched.WorksOn(date.Weekday())
	var taken map[string]bool
	if open {
		booked, err := s.repo.BookedSlots(ctx, doctorID, date)
		if err != nil {
			return nil, err
		}
		taken = make(map[string]bool, len(booked))
		for _, t := range booked {
			taken[t] = true
		}
	}
	for _, slot := range Slots {
		out.Slots = append(out.Slots, SlotState{
			Time:      slot,
			Available: open && sched.Covers(slot) && !taken[slot],
		})
	}
	return out, nil
}

func bookingOutcome(err error) string {
	if err == nil {
		return "booked"
	}
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindValidation, apperr.KindForbidden:
		return "rejected"
	}
	return "error"
}

func transitionOutcome(err error) string {
	if err == nil {
		return "applied"
	}
	switch apperr.KindOf(err) {
	case apperr.KindInvalidTransition:
		return "invalid"
	case apperr.KindForbidden, apperr.KindNotFound, apperr.KindValidation:
		return "rejected"
	}
	return "error"
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
