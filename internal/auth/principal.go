// principal.go defines the Principal type: the authenticated identity every
// core operation is keyed by.
package auth

import "github.com/flowdeck/flowdeck/internal/db/models"

// Principal is the resolved (user, organization) context of a request. It is
// built by the auth middleware from a fresh user row, never from token claims
// alone, so deactivated users are cut off on their next request.
type Principal struct {
	UserID   string
	OrgID    string
	LoginID  string
	FullName string
	Role     string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// PrincipalFromUser builds a Principal from a user row.
func PrincipalFromUser(u *models.User) Principal {
	return Principal{
		UserID:   u.ID,
		OrgID:    u.OrgID,
		LoginID:  u.LoginID,
		FullName: u.FullName,
		Role:     u.Role,
	}
}
