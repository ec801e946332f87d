// Package models - activity_log.go defines the ActivityLog model, the
// append-only audit trail recording every significant mutation.
package models

import "time"

// Audit actions recorded in the activity log.
const (
	ActionCreate        = "CREATE"
	ActionUpdate        = "UPDATE"
	ActionDelete        = "DELETE"
	ActionLogin         = "LOGIN"
	ActionLogout        = "LOGOUT"
	ActionDeactivate    = "DEACTIVATE"
	ActionResetPassword = "RESET_PASSWORD"
)

// Entity table names referenced by audit entries. These are weak references
// by id so the log is never blocked by referential deletes.
const (
	EntityUsers         = "users"
	EntityOrganizations = "organizations"
	EntityTasks         = "tasks"
	EntityMeetings      = "meetings"
	EntityParticipants  = "meeting_participants"
)

// ActivityLog is a single immutable audit entry. Rows are only ever inserted,
// in the same transaction as the mutation they describe.
type ActivityLog struct {
	ID          string
	UserID      *string // nil for system actions
	Action      string
	EntityTable string
	EntityID    *string
	Details     string
	IPAddress   *string
	CreatedAt   time.Time
}
