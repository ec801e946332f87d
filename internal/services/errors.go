// errors.go defines the sentinel error taxonomy surfaced by the core
// services. The boundary layer matches these with errors.Is and maps each to
// a stable user-facing response; raw storage error text is never part of the
// contract.
package services

import (
	"errors"

	"github.com/flowdeck/flowdeck/internal/integrity"
)

var (
	// Validation
	ErrValidation = errors.New("validation failed")

	// Uniqueness
	ErrDuplicateName    = errors.New("organization name already exists")
	ErrDuplicateLoginID = errors.New("login id already exists")

	// Authentication
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrRoleMismatch       = errors.New("account role does not match the login surface")

	// Authorization
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotAParticipant  = errors.New("not a participant of this meeting")

	// Missing entity
	ErrNotFound = errors.New("not found")

	// Invariant violations, defined by the integrity layer and re-exported
	// so callers have a single package to match against.
	ErrInvalidAssignment  = integrity.ErrInvalidAssignment
	ErrInvalidParticipant = integrity.ErrInvalidParticipant
	ErrLastAdminProtected = integrity.ErrLastAdminProtected
)
