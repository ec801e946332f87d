// Package services implements the core operations of the application:
// identity and credential management, Kanban task workflow, meeting
// scheduling with RSVP tracking, and dashboard aggregation. Every mutating
// operation runs as one transaction holding the primary write, its invariant
// checks, and its audit entry, so either all of them commit or none do.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/visibility"
)

// timeNow is swappable in tests that pin derived time computations.
var timeNow = time.Now

// runInTx executes fn inside a transaction, committing on success and rolling
// back when fn returns an error.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// scopeFor derives the visibility scope of a principal.
func scopeFor(p auth.Principal) visibility.Scope {
	return visibility.ScopeFor(p.Role, p.UserID)
}

// ipPtr converts a client address to the nullable form stored on audit
// entries. An empty address stores NULL.
func ipPtr(ip string) *string {
	if ip == "" {
		return nil
	}
	return &ip
}

// strPtrEqual compares two nullable strings by value.
func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
