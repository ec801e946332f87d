// task_service.go implements TaskService: the Kanban board workflow. Status
// transitions are any-to-any; position ordering is display-level and
// last-writer-wins under concurrent drags. Audit entries are written only
// when a mutation actually changes a value, so a pure position move leaves no
// trail.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/db/repositories"
	"github.com/flowdeck/flowdeck/internal/derive"
	"github.com/flowdeck/flowdeck/internal/integrity"
	"github.com/flowdeck/flowdeck/internal/telemetry"
)

// TaskService manages Kanban board tasks.
type TaskService struct {
	db       *sql.DB
	tasks    *repositories.TaskRepository
	users    *repositories.UserRepository
	recorder *integrity.Recorder
}

// NewTaskService creates a TaskService over the given database.
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{
		db:       db,
		tasks:    repositories.NewTaskRepository(db),
		users:    repositories.NewUserRepository(db),
		recorder: integrity.NewRecorder(repositories.NewActivityRepository(db)),
	}
}

// CreateTaskInput holds the caller-supplied fields of a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  *string
	DueDate     *time.Time
	Position    int
}

// ListTasks retrieves the tasks visible to the principal in board order:
// position ascending, ties broken by creation time descending.
func (s *TaskService) ListTasks(ctx context.Context, principal auth.Principal) ([]*models.TaskWithNames, error) {
	return s.tasks.ListVisible(ctx, principal.OrgID, scopeFor(principal))
}

// CreateTask creates a task on the principal's board. An assignee, when
// given, must be an active member of the same organization.
func (s *TaskService) CreateTask(ctx context.Context, principal auth.Principal, in CreateTaskInput, ip string) (*models.Task, error) {
	in.Title = derive.SanitizeText(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Status == "" {
		in.Status = models.TaskStatusTodo
	}
	if !models.ValidTaskStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
	}
	if in.Priority == "" {
		in.Priority = models.TaskPriorityMedium
	}
	if !models.ValidTaskPriority(in.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}

	task := &models.Task{
		OrgID:       principal.OrgID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   principal.UserID,
		DueDate:     in.DueDate,
		Position:    in.Position,
	}

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)

		if task.AssignedTo != nil {
			if err := integrity.CheckActiveAssignee(ctx, txUsers, principal.OrgID, *task.AssignedTo); err != nil {
				return err
			}
		}

		if err := s.tasks.WithTx(tx).Create(ctx, task); err != nil {
			return err
		}

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &principal.UserID,
			Action:      models.ActionCreate,
			EntityTable: models.EntityTasks,
			EntityID:    &task.ID,
			Details:     fmt.Sprintf("Task '%s' created", task.Title),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return nil, err
	}

	telemetry.TaskMutationsTotal.WithLabelValues("create").Inc()
	return task, nil
}

// loadMutableTask fetches a task within the transaction and authorizes the
// principal to mutate it: admins, the creator, and the current assignee.
func (s *TaskService) loadMutableTask(ctx context.Context, tx *sql.Tx, principal auth.Principal, taskID string) (*models.Task, error) {
	task, err := s.tasks.WithTx(tx).GetByIDInOrg(ctx, taskID, principal.OrgID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	if !scopeFor(principal).CanMutateTask(task) {
		return nil, ErrPermissionDenied
	}
	return task, nil
}

// SetStatus moves a task to another lane. Setting the current status again is
// a no-op and leaves no audit entry.
func (s *TaskService) SetStatus(ctx context.Context, principal auth.Principal, taskID, newStatus, ip string) (*models.Task, error) {
	if !models.ValidTaskStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	var task *models.Task
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		task, err = s.loadMutableTask(ctx, tx, principal, taskID)
		if err != nil {
			return err
		}

		if task.Status == newStatus {
			return nil
		}

		oldStatus := task.Status
		if err := s.tasks.WithTx(tx).UpdateStatus(ctx, taskID, newStatus); err != nil {
			return err
		}
		task.Status = newStatus

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &principal.UserID,
			Action:      models.ActionUpdate,
			EntityTable: models.EntityTasks,
			EntityID:    &task.ID,
			Details:     fmt.Sprintf("Task status changed from '%s' to '%s'", oldStatus, newStatus),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return nil, err
	}

	telemetry.TaskMutationsTotal.WithLabelValues("status").Inc()
	return task, nil
}

// SetPosition writes a board drag: the target lane and the new position in
// one statement. Only a lane change is audited; a pure reorder within the
// same lane is not a semantic change. Concurrent reorders are
// last-writer-wins.
func (s *TaskService) SetPosition(ctx context.Context, principal auth.Principal, taskID, newStatus string, newPosition int, ip string) (*models.Task, error) {
	if !models.ValidTaskStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	var task *models.Task
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		task, err = s.loadMutableTask(ctx, tx, principal, taskID)
		if err != nil {
			return err
		}

		oldStatus := task.Status
		if err := s.tasks.WithTx(tx).UpdateStatusAndPosition(ctx, taskID, newStatus, newPosition); err != nil {
			return err
		}
		task.Status = newStatus
		task.Position = newPosition

		if oldStatus == newStatus {
			return nil
		}

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &principal.UserID,
			Action:      models.ActionUpdate,
			EntityTable: models.EntityTasks,
			EntityID:    &task.ID,
			Details:     fmt.Sprintf("Task status changed from '%s' to '%s'", oldStatus, newStatus),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return nil, err
	}

	telemetry.TaskMutationsTotal.WithLabelValues("position").Inc()
	return task, nil
}

// Reassign changes the task's assignee; nil clears it. A new assignee must be
// an active member of the organization.
func (s *TaskService) Reassign(ctx context.Context, principal auth.Principal, taskID string, newAssignee *string, ip string) (*models.Task, error) {
	var task *models.Task
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		task, err = s.loadMutableTask(ctx, tx, principal, taskID)
		if err != nil {
			return err
		}

		if strPtrEqual(task.AssignedTo, newAssignee) {
			return nil
		}

		if newAssignee != nil {
			if err := integrity.CheckActiveAssignee(ctx, s.users.WithTx(tx), principal.OrgID, *newAssignee); err != nil {
				return err
			}
		}

		oldAssignee := describeAssignee(task.AssignedTo)
		if err := s.tasks.WithTx(tx).UpdateAssignee(ctx, taskID, newAssignee); err != nil {
			return err
		}
		task.AssignedTo = newAssignee

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &principal.UserID,
			Action:      models.ActionUpdate,
			EntityTable: models.EntityTasks,
			EntityID:    &task.ID,
			Details:     fmt.Sprintf("Task reassigned from %s to %s", oldAssignee, describeAssignee(newAssignee)),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return nil, err
	}

	telemetry.TaskMutationsTotal.WithLabelValues("assign").Inc()
	return task, nil
}

func describeAssignee(userID *string) string {
	if userID == nil {
		return "unassigned"
	}
	return fmt.Sprintf("'%s'", *userID)
}

// SetPriority changes the task's priority level.
func (s *TaskService) SetPriority(ctx context.Context, principal auth.Principal, taskID, newPriority, ip string) (*models.Task, error) {
	if !models.ValidTaskPriority(newPriority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, newPriority)
	}

	var task *models.Task
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		task, err = s.loadMutableTask(ctx, tx, principal, taskID)
		if err != nil {
			return err
		}

		if task.Priority == newPriority {
			return nil
		}

		oldPriority := task.Priority
		if err := s.tasks.WithTx(tx).UpdatePriority(ctx, taskID, newPriority); err != nil {
			return err
		}
		task.Priority = newPriority

		return s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &principal.UserID,
			Action:      models.ActionUpdate,
			EntityTable: models.EntityTasks,
			EntityID:    &task.ID,
			Details:     fmt.Sprintf("Task priority changed from '%s' to '%s'", oldPriority, newPriority),
			IPAddress:   ipPtr(ip),
		})
	})
	if err != nil {
		return nil, err
	}

	telemetry.TaskMutationsTotal.WithLabelValues("priority").Inc()
	return task, nil
}

// DeleteTask removes a task. Only admins and the task's creator may delete;
// the audit entry is written in the same transaction as the delete.
func (s *TaskService) DeleteTask(ctx context.Context, principal auth.Principal, taskID, ip string) error {
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		task, err := s.tasks.WithTx(tx).GetByIDInOrg(ctx, taskID, principal.OrgID)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrNotFound
		}
		if !scopeFor(principal).CanDeleteTask(task) {
			return ErrPermissionDenied
		}

		if err := s.recorder.Record(ctx, tx, &models.ActivityLog{
			UserID:      &principal.UserID,
			Action:      models.ActionDelete,
			EntityTable: models.EntityTasks,
			EntityID:    &task.ID,
			Details:     fmt.Sprintf("Task '%s' deleted", task.Title),
			IPAddress:   ipPtr(ip),
		}); err != nil {
			return err
		}

		return s.tasks.WithTx(tx).Delete(ctx, taskID)
	})
	if err != nil {
		return err
	}

	telemetry.TaskMutationsTotal.WithLabelValues("delete").Inc()
	return nil
}

// ScoredTask is a task annotated with its derived urgency. The score is
// computed per request and never stored.
type ScoredTask struct {
	*models.TaskWithNames
	UrgencyScore float64
	DaysOverdue  int
}

// ListUrgent retrieves the principal's visible non-done tasks ranked by
// urgency score, highest first. limit <= 0 returns all.
func (s *TaskService) ListUrgent(ctx context.Context, principal auth.Principal, limit int) ([]*ScoredTask, error) {
	tasks, err := s.tasks.ListOpenVisible(ctx, principal.OrgID, scopeFor(principal))
	if err != nil {
		return nil, err
	}

	now := timeNow()
	scored := make([]*ScoredTask, 0, len(tasks))
	for _, t := range tasks {
		scored = append(scored, &ScoredTask{
			TaskWithNames: t,
			UrgencyScore:  derive.UrgencyScore(t.Priority, t.DueDate, now),
			DaysOverdue:   derive.DaysOverdue(t.DueDate, now),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].UrgencyScore > scored[j].UrgencyScore
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// ListOverdue retrieves the principal's visible non-done tasks that are past
// their due date, ranked by urgency then by how long they have been overdue.
func (s *TaskService) ListOverdue(ctx context.Context, principal auth.Principal) ([]*ScoredTask, error) {
	tasks, err := s.tasks.ListOpenVisible(ctx, principal.OrgID, scopeFor(principal))
	if err != nil {
		return nil, err
	}

	now := timeNow()
	var overdue []*ScoredTask
	for _, t := range tasks {
		days := derive.DaysOverdue(t.DueDate, now)
		if days == 0 {
			continue
		}
		overdue = append(overdue, &ScoredTask{
			TaskWithNames: t,
			UrgencyScore:  derive.UrgencyScore(t.Priority, t.DueDate, now),
			DaysOverdue:   days,
		})
	}

	sort.SliceStable(overdue, func(i, j int) bool {
		if overdue[i].UrgencyScore != overdue[j].UrgencyScore {
			return overdue[i].UrgencyScore > overdue[j].UrgencyScore
		}
		return overdue[i].DaysOverdue > overdue[j].DaysOverdue
	})

	return overdue, nil
}
