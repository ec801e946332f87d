// guard.go implements the invariant checks invoked by services inside their
// mutating transactions. Every function takes transaction-bound repositories
// so the check reads the same snapshot the mutation writes.
package integrity

import (
	"context"

	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/db/repositories"
)

// CheckActiveAssignee verifies that the proposed task assignee is an active
// user of the organization.
func CheckActiveAssignee(ctx context.Context, users *repositories.UserRepository, orgID, userID string) error {
	active, err := users.IsActive(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !active {
		return ErrInvalidAssignment
	}
	return nil
}

// CheckActiveParticipant verifies that the proposed meeting invitee is an
// active user of the organization.
func CheckActiveParticipant(ctx context.Context, users *repositories.UserRepository, orgID, userID string) error {
	active, err := users.IsActive(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !active {
		return ErrInvalidParticipant
	}
	return nil
}

// CheckNotLastActiveAdmin verifies that deactivating (or removing) the target
// user would not leave the organization without an active admin. The check is
// a no-op for employees and already-inactive users.
func CheckNotLastActiveAdmin(ctx context.Context, users *repositories.UserRepository, target *models.User) error {
	if target.Role != models.RoleAdmin || !target.IsActive {
		return nil
	}

	count, err := users.CountActiveAdmins(ctx, target.OrgID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastAdminProtected
	}
	return nil
}
