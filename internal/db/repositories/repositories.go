// Package repositories implements the data access layer (repository pattern)
// for the collaboration backend. Each repository type encapsulates all
// database queries for a domain entity. Services never issue SQL directly;
// all database access goes through this layer, which keeps query logic
// testable in isolation and prevents accidental cross-tenant data access
// (every query is organization-scoped).
//
// Mutating service operations run several repositories inside one
// transaction: WithTx returns a shallow copy of a repository bound to an open
// *sql.Tx, so the primary write, invariant checks, and audit entry all commit
// or roll back together.
package repositories

import (
	"context"
	"database/sql"
)

// Querier is the subset of database operations shared by *sql.DB and
// *sql.Tx. Repositories run against a Querier so their methods work both
// standalone and inside a caller-owned transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
