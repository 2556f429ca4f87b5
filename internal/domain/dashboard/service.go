package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/store"
	"github.com/carepoint/hms/pkg/civil"
)

type Service struct {
	counter Counter
	logger  zerolog.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewService(counter Counter, logger zerolog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		counter: counter,
		logger:  logger.With().Str("component", "dashboard").Logger(),
		loc:     loc,
		now:     time.Now,
	}
}

type widget struct {
	key, label string
	src        Source
	filters    []store.Filter
}

// Summary computes the widgets for the caller's role.
func (s *Service) Summary(ctx context.Context, caller auth.Caller) (*Summary, error) {
	today := civil.Today(s.now(), s.loc)
	widgets, err := widgetsFor(caller, today)
	if err != nil {
		return nil, err
	}

	// Counts run one after another: the request holds a single session
	// connection, which is not safe for concurrent queries.
	stats := make([]Stat, 0, len(widgets))
	for _, w := range widgets {
		n, err := s.counter.Count(ctx, w.src, w.filters...)
		if err != nil {
			s.logger.Error().Err(err).Str("widget", w.key).Msg("dashboard count failed")
			return nil, err
		}
		stats = append(stats, Stat{Key: w.key, Label: w.label, Value: n})
	}
	return &Summary{Role: caller.Role, Date: today, Stats: stats}, nil
}

func widgetsFor(caller auth.Caller, today civil.Date) ([]widget, error) {
	live := store.Filter{Column: "status", Op: store.Ne, Value: "cancelled"}
	scheduled := store.Where("status", "scheduled")
	onToday := store.Where("appointment_date", today)
	fromToday := store.Filter{Column: "appointment_date", Op: store.Gte, Value: today}
	beforeToday := store.Filter{Column: "appointment_date", Op: store.Lt, Value: today}

	switch caller.Role {
	case auth.RoleAdmin:
		return []widget{
			{"patients", "Patients", Profiles, []store.Filter{store.Where("role", string(auth.RolePatient))}},
			{"doctors", "Doctors", Profiles, []store.Filter{store.Where("role", string(auth.RoleDoctor))}},
			{"departments", "Departments", Departments, nil},
			{"appointments_today", "Appointments today", Appointments, []store.Filter{onToday, live}},
			{"upcoming", "Upcoming appointments", Appointments, []store.Filter{fromToday, scheduled}},
		}, nil
	case auth.RoleDoctor:
		mine := store.Where("doctor_id", caller.ProfileID)
		return []widget{
			{"appointments_today", "Today's appointments", Appointments, []store.Filter{mine, onToday, live}},
			{"upcoming", "Upcoming appointments", Appointments, []store.Filter{mine, fromToday, scheduled}},
			{"completed", "Completed appointments", Appointments, []store.Filter{mine, store.Where("status", "completed")}},
			{"records_authored", "Medical records written", Records, []store.Filter{mine}},
		}, nil
	case auth.RolePatient:
		mine := store.Where("patient_id", caller.ProfileID)
		return []widget{
			{"upcoming", "Upcoming appointments", Appointments, []store.Filter{mine, fromToday, scheduled}},
			{"past", "Past appointments", Appointments, []store.Filter{mine, beforeToday}},
			{"records", "Medical records", Records, []store.Filter{mine}},
			{"documents", "Documents", Documents, []store.Filter{mine}},
		}, nil
	}
	return nil, apperr.Forbidden("unknown role")
}
