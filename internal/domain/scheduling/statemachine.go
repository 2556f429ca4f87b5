package scheduling

import (
	"fmt"

	"github.com/carepoint/hms/internal/platform/apperr"
	"github.com/carepoint/hms/internal/platform/auth"
)

// transitions lists the targets each role may move a scheduled
// appointment to. Every target is terminal.
var transitions = map[auth.Role]map[Status]bool{
	auth.RoleAdmin:   {StatusCompleted: true, StatusCancelled: true, StatusNoShow: true},
	auth.RoleDoctor:  {StatusCompleted: true, StatusCancelled: true},
	auth.RolePatient: {StatusCancelled: true},
}

// CheckTransition validates moving an appointment from one status to
// another on behalf of role.
func CheckTransition(role auth.Role, from, to Status) error {
	if !to.Valid() {
		return apperr.Validation("status", "must be one of: scheduled completed cancelled no_show")
	}
	if from.Terminal() || to == StatusScheduled {
		return apperr.InvalidTransition(string(from), string(to))
	}
	if !transitions[role][to] {
		return apperr.Forbidden(fmt.Sprintf("%s cannot move an appointment to %s", role, to))
	}
	return nil
}
