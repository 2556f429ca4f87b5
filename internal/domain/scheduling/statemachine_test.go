package scheduling

import (
	"errors"
	"testing"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
)

func TestCheckTransition(t *testing.T) {
	all := []Status{StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow}
	allowed := map[auth.Role][]Status{
		auth.RoleAdmin:   {StatusCompleted, StatusCancelled, StatusNoShow},
		auth.RoleDoctor:  {StatusCompleted, StatusCancelled},
		auth.RolePatient: {StatusCancelled},
	}

	for role, targets := range allowed {
		ok := map[Status]bool{}
		for _, s := range targets {
			ok[s] = true
		}
		for _, from := range all {
			for _, to := range all {
				err := CheckTransition(role, from, to)
				switch {
				case from.Terminal() || to == StatusScheduled:
					if !errors.Is(err, apperr.ErrInvalidTransition) {
						t.Errorf("%s %s->%s: expected invalid transition, got %v", role, from, to, err)
					}
				case ok[to]:
					if err != nil {
						t.Errorf("%s %s->%s: unexpected error %v", role, from, to, err)
					}
				default:
					if !errors.Is(err, apperr.ErrForbidden) {
						t.Errorf("%s %s->%s: expected forbidden, got %v", role, from, to, err)
					}
				}
			}
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	if StatusScheduled.Terminal() {
		t.Error("scheduled must not be terminal")
	}
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func TestIsSlot(t *testing.T) {
	for _, s := range Slots {
		if !IsSlot(s) {
			t.Errorf("%s should be a slot", s)
		}
	}
	for _, s := range []string{"", "08:30", "12:00", "13:30", "17:30", "9:00"} {
		if IsSlot(s) {
			t.Errorf("%q should not be a slot", s)
		}
	}
}

func TestDoctorSchedule_Covers(t *testing.T) {
	start, end := "10:00", "15:00"
	d := &DoctorSchedule{AvailableHoursStart: &start, AvailableHoursEnd: &end}
	cases := map[string]bool{"09:30": false, "10:00": true, "14:30": true, "15:00": false}
	for slot, want := range cases {
		if got := d.Covers(slot); got != want {
			t.Errorf("Covers(%s) = %v, want %v", slot, got, want)
		}
	}
	if !(&DoctorSchedule{}).Covers("17:00") {
		t.Error("no window should cover every slot")
	}
}
