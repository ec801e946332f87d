// Package models - user.go defines the User model for organization members,
// covering both admins and employees, along with role and job level constants.
package models

import "time"

// Roles a user can hold within their organization.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// Job levels recognised by the employee profile.
const (
	JobLevelIntern          = "intern"
	JobLevelDeveloper       = "developer"
	JobLevelSeniorDeveloper = "senior_developer"
	JobLevelTeamLead        = "team_lead"
	JobLevelManager         = "manager"
	JobLevelAdmin           = "admin"
)

// User represents a member of an organization. Users are soft-deactivated
// (IsActive=false) rather than deleted so historical task and meeting
// references stay intact.
type User struct {
	ID           string
	OrgID        string
	LoginID      string // globally unique
	PasswordHash string
	FullName     string
	Email        string
	Role         string // RoleAdmin or RoleEmployee
	JobLevel     string
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the recognised user roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleEmployee
}

// ValidJobLevel reports whether level is one of the recognised job levels.
func ValidJobLevel(level string) bool {
	switch level {
	case JobLevelIntern, JobLevelDeveloper, JobLevelSeniorDeveloper,
		JobLevelTeamLead, JobLevelManager, JobLevelAdmin:
		return true
	}
	return false
}
