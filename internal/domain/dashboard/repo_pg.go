package dashboard

import (
	"context"
	"fmt"

	"github.com/carepoint/hms/internal/platform/store"
)

// Only the columns the widgets filter on are listed.
var sources = map[Source]store.Table{
	Profiles:     {Name: "profiles", Columns: []string{"id", "role"}},
	Departments:  {Name: "departments", Columns: []string{"id"}},
	Appointments: {Name: "appointments", Columns: []string{"id", "patient_id", "doctor_id", "appointment_date", "status"}},
	Records:      {Name: "medical_records", Columns: []string{"id", "patient_id", "doctor_id"}},
	Documents:    {Name: "medical_documents", Columns: []string{"id", "patient_id"}},
}

type counterPG struct {
	db *store.Client
}

func NewCounter(c *store.Client) Counter {
	return &counterPG{db: c}
}

func (r *counterPG) Count(ctx context.Context, src Source, filters ...store.Filter) (int, error) {
	t, ok := sources[src]
	if !ok {
		return 0, fmt.Errorf("dashboard: unknown source %q", src)
	}
	return store.Count(ctx, r.db, t, filters...)
}
