// Package integrity enforces cross-record invariants and generates the audit
// trail. Both run as an explicit interceptor inside every mutating
// operation's transaction, before commit: a failed check aborts the whole
// transaction, and an audit entry only ever commits together with the
// mutation it records. Keeping the rules here, rather than in storage-engine
// triggers, makes the invariant set testable independently of the backend.
package integrity

import "errors"

var (
	// ErrInvalidAssignment is returned when a task would be assigned to a
	// user who is not an active member of the organization.
	ErrInvalidAssignment = errors.New("task assignee must be an active user of the organization")

	// ErrInvalidParticipant is returned when a meeting invitation references
	// a user who is not an active member of the organization.
	ErrInvalidParticipant = errors.New("meeting participant must be an active user of the organization")

	// ErrLastAdminProtected is returned when an operation would leave an
	// organization with no active admin.
	ErrLastAdminProtected = errors.New("organization must retain at least one active admin")
)
