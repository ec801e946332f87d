// Package models - task.go defines the Task model for the Kanban board,
// including the status lane and priority constants.
package models

import "time"

// Task statuses. The four values form the board's lane sequence; any-to-any
// transitions are permitted, ordering is display-only.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

// Task priorities, in ascending urgency order.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// Task represents a Kanban board task. Position orders tasks within a status
// lane; it carries no uniqueness guarantee and ties are broken by CreatedAt
// descending when listing.
type Task struct {
	ID          string
	OrgID       string
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  *string // nil when unassigned
	CreatedBy   string
	DueDate     *time.Time
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskWithNames joins the task with the display names of its assignee and
// creator for listing views.
type TaskWithNames struct {
	Task
	AssignedToName *string
	CreatedByName  string
}

// ValidTaskStatus reports whether status is one of the board lanes.
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

// ValidTaskPriority reports whether priority is a recognised priority level.
func ValidTaskPriority(priority string) bool {
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// AllTaskStatuses returns the lane sequence in board order.
func AllTaskStatuses() []string {
	return []string{TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone}
}
