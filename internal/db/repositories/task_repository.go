// task_repository.go implements TaskRepository, providing database queries
// for Kanban tasks: visibility-scoped listings in board order, lane/position
// updates, and the aggregates behind performance metrics.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/visibility"
	"github.com/google/uuid"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	q Querier
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{q: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *TaskRepository) WithTx(tx *sql.Tx) *TaskRepository {
	return &TaskRepository{q: tx}
}

// Create inserts a new task, assigning its id and timestamps
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	task.ID = uuid.New().String()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt

	query := `
		INSERT INTO tasks (id, org_id, title, description, status, priority, assigned_to, created_by, due_date, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		task.ID,
		task.OrgID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.AssignedTo,
		task.CreatedBy,
		task.DueDate,
		task.Position,
		task.CreatedAt,
		task.UpdatedAt,
	)

	return err
}

// GetByIDInOrg retrieves a task by id scoped to an organization
func (r *TaskRepository) GetByIDInOrg(ctx context.Context, taskID, orgID string) (*models.Task, error) {
	query := `
		SELECT id, org_id, title, description, status, priority, assigned_to, created_by, due_date, position, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND org_id = $2
	`

	task := &models.Task{}
	var assignedTo sql.NullString
	var dueDate sql.NullTime
	err := r.q.QueryRowContext(ctx, query, taskID, orgID).Scan(
		&task.ID,
		&task.OrgID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&assignedTo,
		&task.CreatedBy,
		&dueDate,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		task.AssignedTo = &assignedTo.String
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}

	return task, nil
}

const taskListColumns = `
	t.id, t.org_id, t.title, t.description, t.status, t.priority, t.assigned_to, t.created_by, t.due_date, t.position, t.created_at, t.updated_at,
	u1.full_name AS assigned_to_name,
	u2.full_name AS created_by_name
`

func scanTaskRows(rows *sql.Rows) ([]*models.TaskWithNames, error) {
	var tasks []*models.TaskWithNames
	for rows.Next() {
		t := &models.TaskWithNames{}
		var assignedTo, assignedToName sql.NullString
		var dueDate sql.NullTime
		if err := rows.Scan(
			&t.ID,
			&t.OrgID,
			&t.Title,
			&t.Description,
			&t.Status,
			&t.Priority,
			&assignedTo,
			&t.CreatedBy,
			&dueDate,
			&t.Position,
			&t.CreatedAt,
			&t.UpdatedAt,
			&assignedToName,
			&t.CreatedByName,
		); err != nil {
			return nil, err
		}
		if assignedTo.Valid {
			t.AssignedTo = &assignedTo.String
		}
		if assignedToName.Valid {
			t.AssignedToName = &assignedToName.String
		}
		if dueDate.Valid {
			t.DueDate = &dueDate.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListVisible retrieves the tasks of an organization the scope may see, in
// board order: position ascending, ties broken by creation time descending.
func (r *TaskRepository) ListVisible(ctx context.Context, orgID string, scope visibility.Scope) ([]*models.TaskWithNames, error) {
	query := `
		SELECT ` + taskListColumns + `
		FROM tasks t
		LEFT JOIN users u1 ON t.assigned_to = u1.id
		JOIN users u2 ON t.created_by = u2.id
		WHERE t.org_id = $1
	`
	args := []interface{}{orgID}

	clause, filterArgs := scope.TaskFilter(len(args) + 1)
	query += clause
	args = append(args, filterArgs...)

	query += ` ORDER BY t.position ASC, t.created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// ListOpenVisible retrieves visible tasks that are not done, newest first.
// Callers re-derive urgency over the result; the score is never stored.
func (r *TaskRepository) ListOpenVisible(ctx context.Context, orgID string, scope visibility.Scope) ([]*models.TaskWithNames, error) {
	query := `
		SELECT ` + taskListColumns + `
		FROM tasks t
		LEFT JOIN users u1 ON t.assigned_to = u1.id
		JOIN users u2 ON t.created_by = u2.id
		WHERE t.org_id = $1 AND t.status != 'done'
	`
	args := []interface{}{orgID}

	clause, filterArgs := scope.TaskFilter(len(args) + 1)
	query += clause
	args = append(args, filterArgs...)

	query += ` ORDER BY t.created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTaskRows(rows)
}

// UpdateStatus moves a task to a new status lane and refreshes updated_at
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID, status string) error {
	query := `UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.q.ExecContext(ctx, query, status, taskID)
	return err
}

// UpdateStatusAndPosition writes a lane move and a position in one statement,
// used by board drag-and-drop. Concurrent reorders on the same lane are
// last-writer-wins; only the individual write is atomic.
func (r *TaskRepository) UpdateStatusAndPosition(ctx context.Context, taskID, status string, position int) error {
	query := `UPDATE tasks SET status = $1, position = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.q.ExecContext(ctx, query, status, position, taskID)
	return err
}

// UpdateAssignee changes the task's assignee (nil clears it) and refreshes updated_at
func (r *TaskRepository) UpdateAssignee(ctx context.Context, taskID string, assignedTo *string) error {
	query := `UPDATE tasks SET assigned_to = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.q.ExecContext(ctx, query, assignedTo, taskID)
	return err
}

// UpdatePriority changes the task's priority and refreshes updated_at
func (r *TaskRepository) UpdatePriority(ctx context.Context, taskID, priority string) error {
	query := `UPDATE tasks SET priority = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.q.ExecContext(ctx, query, priority, taskID)
	return err
}

// Delete removes a task
func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	query := `DELETE FROM tasks WHERE id = $1`
	_, err := r.q.ExecContext(ctx, query, taskID)
	return err
}

// CountAssignedTo returns the number of tasks assigned to a user in an organization
func (r *TaskRepository) CountAssignedTo(ctx context.Context, orgID, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE org_id = $1 AND assigned_to = $2`
	err := r.q.QueryRowContext(ctx, query, orgID, userID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountByOrg returns total and completed task counts for an organization
func (r *TaskRepository) CountByOrg(ctx context.Context, orgID string) (total, completed int, err error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'done')
		FROM tasks
		WHERE org_id = $1
	`
	err = r.q.QueryRowContext(ctx, query, orgID).Scan(&total, &completed)
	return total, completed, err
}

// CompletionStats returns total and done counts over a user's assigned tasks
func (r *TaskRepository) CompletionStats(ctx context.Context, userID string) (total, done int, err error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'done')
		FROM tasks
		WHERE assigned_to = $1
	`
	err = r.q.QueryRowContext(ctx, query, userID).Scan(&total, &done)
	return total, done, err
}

// AvgCompletionDays returns the average days between creation and the last
// update of a user's done tasks, 0 when the user has none.
func (r *TaskRepository) AvgCompletionDays(ctx context.Context, userID string) (float64, error) {
	var avg sql.NullFloat64
	query := `
		SELECT AVG(EXTRACT(EPOCH FROM (updated_at - created_at)) / 86400.0)
		FROM tasks
		WHERE assigned_to = $1 AND status = 'done'
	`
	err := r.q.QueryRowContext(ctx, query, userID).Scan(&avg)
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

// LaneCountsForAssignee returns per-status task counts for a user's assigned tasks
func (r *TaskRepository) LaneCountsForAssignee(ctx context.Context, userID string) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM tasks
		WHERE assigned_to = $1
		GROUP BY status
	`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
