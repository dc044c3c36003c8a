package auth

import (
	"fmt"

	"guildhall/internal/domain"
)

// ForbiddenError indicates the user's role or ownership does not permit
// the attempted operation.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

// RequireManager admits Manager and Admin accounts.
func RequireManager(u domain.User) error {
	if domain.RoleRank(u.Role) >= domain.RoleRank(domain.RoleManager) {
		return nil
	}
	return ForbiddenError{Reason: "manager role required"}
}

// RequireAdmin admits Admin accounts only.
func RequireAdmin(u domain.User) error {
	if domain.RoleRank(u.Role) >= domain.RoleRank(domain.RoleAdmin) {
		return nil
	}
	return ForbiddenError{Reason: "admin role required"}
}

// RequireMissionLead admits only the mission's lead. Callers resolve the
// mission first so an unknown mission surfaces as not-found rather than
// forbidden.
func RequireMissionLead(u domain.User, m domain.Mission) error {
	if m.LeadUserID == u.ID {
		return nil
	}
	return ForbiddenError{Reason: "only the mission lead may do this"}
}
