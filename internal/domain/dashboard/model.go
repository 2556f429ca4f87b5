package dashboard

import (
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/pkg/civil"
)

// Source names a table the dashboard counts rows in.
type Source string

const (
	Profiles     Source = "profiles"
	Departments  Source = "departments"
	Appointments Source = "appointments"
	Records      Source = "medical_records"
	Documents    Source = "medical_documents"
)

// Stat is one summary widget.
type Stat struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Summary is the set of widgets for the caller's role, computed for Date
// in the clinic time zone.
type Summary struct {
	Role  auth.Role  `json:"role"`
	Date  civil.Date `json:"date"`
	Stats []Stat     `json:"stats"`
}
