// Package visibility implements the role-scoped visibility policy as a
// capability scope: admins see everything in their organization, employees
// see only tasks and meetings they created, are assigned to, or are invited
// to. The scope is rendered once, as a SQL predicate for listings and as
// pure checks for mutation authorization, so every call site applies the
// same rule and an employee cannot bypass it by guessing an id.
package visibility

import (
	"fmt"

	"github.com/flowdeck/flowdeck/internal/db/models"
)

// Scope is a tagged capability: either the admin scope (all rows in the
// organization) or an employee scope bound to the employee's own user id.
type Scope struct {
	admin  bool
	selfID string
}

// AdminScope returns the scope that sees every task and meeting in the
// organization.
func AdminScope() Scope {
	return Scope{admin: true}
}

// EmployeeScope returns the scope limited to rows the given user created, is
// assigned to, or participates in.
func EmployeeScope(selfID string) Scope {
	return Scope{selfID: selfID}
}

// ScopeFor derives the scope for a principal's role and user id.
func ScopeFor(role, userID string) Scope {
	if role == models.RoleAdmin {
		return AdminScope()
	}
	return EmployeeScope(userID)
}

// IsAdmin reports whether this is the admin scope.
func (s Scope) IsAdmin() bool {
	return s.admin
}

// SelfID returns the bound user id for an employee scope ("" for admin).
func (s Scope) SelfID() string {
	return s.selfID
}

// TaskFilter renders the scope as a SQL predicate over a tasks table aliased
// "t". It returns an empty clause for the admin scope. next is the positional
// parameter index the clause may start using; args are the values to append
// to the query's argument list.
func (s Scope) TaskFilter(next int) (clause string, args []interface{}) {
	if s.admin {
		return "", nil
	}
	clause = fmt.Sprintf(" AND (t.assigned_to = $%d OR t.created_by = $%d)", next, next+1)
	return clause, []interface{}{s.selfID, s.selfID}
}

// MeetingFilter renders the scope as a SQL predicate over a meetings table
// aliased "m". Employees see meetings they created or are invited to.
func (s Scope) MeetingFilter(next int) (clause string, args []interface{}) {
	if s.admin {
		return "", nil
	}
	clause = fmt.Sprintf(
		" AND (m.created_by = $%d OR EXISTS (SELECT 1 FROM meeting_participants mp WHERE mp.meeting_id = m.id AND mp.user_id = $%d))",
		next, next+1)
	return clause, []interface{}{s.selfID, s.selfID}
}

// CanSeeTask reports whether the scope covers the given task.
func (s Scope) CanSeeTask(t *models.Task) bool {
	if s.admin {
		return true
	}
	if t.CreatedBy == s.selfID {
		return true
	}
	return t.AssignedTo != nil && *t.AssignedTo == s.selfID
}

// CanMutateTask reports whether the scope authorizes status, position,
// priority, and assignee changes on the given task. The rule is identical to
// CanSeeTask: admins, the creator, and the current assignee.
func (s Scope) CanMutateTask(t *models.Task) bool {
	return s.CanSeeTask(t)
}

// CanDeleteTask reports whether the scope authorizes deleting the task:
// admins and the creator only.
func (s Scope) CanDeleteTask(t *models.Task) bool {
	return s.admin || t.CreatedBy == s.selfID
}

// CanSeeMeeting reports whether the scope covers the given meeting.
// isParticipant tells whether the bound user has a participant row.
func (s Scope) CanSeeMeeting(m *models.Meeting, isParticipant bool) bool {
	if s.admin {
		return true
	}
	return m.CreatedBy == s.selfID || isParticipant
}
