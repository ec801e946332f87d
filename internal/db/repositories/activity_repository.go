// activity_repository.go implements ActivityRepository, the append-only data
// access for the audit trail. Entries are only ever inserted, never updated
// or deleted, and filtered reads serve the admin activity view.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/google/uuid"
)

// ActivityRepository handles audit trail database operations
type ActivityRepository struct {
	q Querier
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{q: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
// Audit entries must commit atomically with the mutation they record, so
// services always insert through a transaction-bound copy.
func (r *ActivityRepository) WithTx(tx *sql.Tx) *ActivityRepository {
	return &ActivityRepository{q: tx}
}

// Insert appends a new audit entry, assigning its id and timestamp
func (r *ActivityRepository) Insert(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO activity_log (id, user_id, action, entity_table, entity_id, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.EntityTable,
		entry.EntityID,
		entry.Details,
		entry.IPAddress,
		entry.CreatedAt,
	)

	return err
}

// ActivityFilters contains optional filters for querying the audit trail
type ActivityFilters struct {
	UserID      *string
	Action      *string
	EntityTable *string
	Since       *time.Time
}

// ListByOrg retrieves audit entries whose acting user belongs to the given
// organization, newest first, with optional filters and pagination. Entries
// with no acting user (system actions) are excluded from the org view.
func (r *ActivityRepository) ListByOrg(ctx context.Context, orgID string, filters ActivityFilters, limit, offset int) ([]*models.ActivityLog, error) {
	query := `
		SELECT a.id, a.user_id, a.action, a.entity_table, a.entity_id, a.details, a.ip_address, a.created_at
		FROM activity_log a
		JOIN users u ON a.user_id = u.id
		WHERE u.org_id = $1
	`
	args := []interface{}{orgID}

	if filters.UserID != nil {
		query += fmt.Sprintf(` AND a.user_id = $%d`, len(args)+1)
		args = append(args, *filters.UserID)
	}

	if filters.Action != nil {
		query += fmt.Sprintf(` AND a.action = $%d`, len(args)+1)
		args = append(args, *filters.Action)
	}

	if filters.EntityTable != nil {
		query += fmt.Sprintf(` AND a.entity_table = $%d`, len(args)+1)
		args = append(args, *filters.EntityTable)
	}

	if filters.Since != nil {
		query += fmt.Sprintf(` AND a.created_at >= $%d`, len(args)+1)
		args = append(args, *filters.Since)
	}

	query += fmt.Sprintf(` ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ActivityLog
	for rows.Next() {
		e := &models.ActivityLog{}
		var userID, entityID, ipAddress sql.NullString
		if err := rows.Scan(
			&e.ID,
			&userID,
			&e.Action,
			&e.EntityTable,
			&entityID,
			&e.Details,
			&ipAddress,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if userID.Valid {
			e.UserID = &userID.String
		}
		if entityID.Valid {
			e.EntityID = &entityID.String
		}
		if ipAddress.Valid {
			e.IPAddress = &ipAddress.String
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// CountByAction returns the number of audit entries recorded for an action,
// used by tests asserting the one-entry-per-mutation property.
func (r *ActivityRepository) CountByAction(ctx context.Context, action string) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_log WHERE action = $1`, action).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
