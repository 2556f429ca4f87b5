package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carepoint/hms/pkg/civil"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Slots are the bookable appointment times, in order.
var Slots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00",
}

func IsSlot(t string) bool {
	for _, s := range Slots {
		if s == t {
			return true
		}
	}
	return false
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	DepartmentID    uuid.UUID  `db:"department_id" json:"department_id"`
	AppointmentDate civil.Date `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string     `db:"appointment_time" json:"appointment_time"`
	ReasonForVisit  string     `db:"reason_for_visit" json:"reason_for_visit"`
	Status          Status     `db:"status" json:"status"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	Prescription    *string    `db:"prescription" json:"prescription,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// BookRequest books a slot. PatientID is only honored for admins booking
// on behalf of a patient.
type BookRequest struct {
	PatientID       *uuid.UUID `json:"patient_id" validate:"omitnil,uuid"`
	DepartmentID    uuid.UUID  `json:"department_id" validate:"required,uuid"`
	DoctorID        uuid.UUID  `json:"doctor_id" validate:"required,uuid"`
	AppointmentDate civil.Date `json:"appointment_date" validate:"required"`
	AppointmentTime string     `json:"appointment_time" validate:"required"`
	ReasonForVisit  string     `json:"reason_for_visit" validate:"required,min=10,max=1000"`
}

type TransitionRequest struct {
	Status Status `json:"status"`
}

// VisitUpdate carries the doctor's post-visit notes. Nil fields are left
// untouched.
type VisitUpdate struct {
	Notes        *string `json:"notes" validate:"omitnil,max=5000"`
	Prescription *string `json:"prescription" validate:"omitnil,max=5000"`
}

// View selects list ordering.
type View string

const (
	ViewList     View = "list"
	ViewCalendar View = "calendar"
)

// ListFilter narrows an appointment listing. Scoping by caller is applied
// on top.
type ListFilter struct {
	View   View
	Status Status
	From   *civil.Date
	To     *civil.Date
	Limit  int
	Offset int
}

// DoctorSchedule is the booking-relevant part of a doctor profile.
type DoctorSchedule struct {
	ProfileID           uuid.UUID  `db:"profile_id"`
	DepartmentID        *uuid.UUID `db:"department_id"`
	AvailableDays       []string   `db:"available_days"`
	AvailableHoursStart *string    `db:"available_hours_start"`
	AvailableHoursEnd   *string    `db:"available_hours_end"`
}

// WorksOn reports whether the doctor sees patients on weekday. An empty
// day list means every day.
func (d *DoctorSchedule) WorksOn(day time.Weekday) bool {
	if len(d.AvailableDays) == 0 {
		return true
	}
	for _, name := range d.AvailableDays {
		if strings.EqualFold(name, day.String()) {
			return true
		}
	}
	return false
}

// Covers reports whether slot falls in the published hours window
// [start, end). No window means any slot.
func (d *DoctorSchedule) Covers(slot string) bool {
	if d.AvailableHoursStart == nil || d.AvailableHoursEnd == nil {
		return true
	}
	return slot >= *d.AvailableHoursStart && slot < *d.AvailableHoursEnd
}

// SlotState is one entry of a day's availability.
type SlotState struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type Availability struct {
	DoctorID uuid.UUID   `json:"doctor_id"`
	Date     civil.Date  `json:"date"`
	Slots    []SlotState `json:"slots"`
}
