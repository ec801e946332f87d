// Package board implements the Kanban board endpoints: task listing in board
// order, creation, lane and position moves, reassignment, priority changes,
// deletion, and the derived urgency and overdue views.
package board

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/flowdeck/flowdeck/internal/api/apierror"
	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/middleware"
	"github.com/flowdeck/flowdeck/internal/services"
	"github.com/gin-gonic/gin"
)

// TaskHandlers handles task board endpoints
type TaskHandlers struct {
	tasks *services.TaskService
}

// NewTaskHandlers creates a new TaskHandlers instance
func NewTaskHandlers(db *sql.DB) *TaskHandlers {
	return &TaskHandlers{tasks: services.NewTaskService(db)}
}

// ListTasksHandler lists the tasks visible to the caller in board order
// GET /api/v1/tasks
func (h *TaskHandlers) ListTasksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		tasks, err := h.tasks.ListTasks(c.Request.Context(), principal)
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		views := make([]gin.H, 0, len(tasks))
		for _, t := range tasks {
			views = append(views, taskListView(t))
		}

		c.JSON(http.StatusOK, gin.H{"tasks": views})
	}
}

type createTaskRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	AssignedTo  *string `json:"assigned_to"`
	DueDate     *string `json:"due_date"` // YYYY-MM-DD
	Position    int     `json:"position"`
}

// CreateTaskHandler creates a task on the caller's board
// POST /api/v1/tasks
func (h *TaskHandlers) CreateTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		var dueDate *time.Time
		if req.DueDate != nil && *req.DueDate != "" {
			parsed, err := time.Parse("2006-01-02", *req.DueDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_date, expected YYYY-MM-DD"})
				return
			}
			dueDate = &parsed
		}

		task, err := h.tasks.CreateTask(c.Request.Context(), principal, services.CreateTaskInput{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			AssignedTo:  req.AssignedTo,
			DueDate:     dueDate,
			Position:    req.Position,
		}, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"task": taskView(task)})
	}
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatusHandler moves a task to another lane
// PUT /api/v1/tasks/:id/status
func (h *TaskHandlers) SetStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		var req setStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		task, err := h.tasks.SetStatus(c.Request.Context(), principal, c.Param("id"), req.Status, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"task": taskView(task)})
	}
}

type setPositionRequest struct {
	Status   string `json:"status" binding:"required"`
	Position *int   `json:"position" binding:"required"`
}

// SetPositionHandler writes a board drag: target lane plus new position
// PUT /api/v1/tasks/:id/position
func (h *TaskHandlers) SetPositionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		var req setPositionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		task, err := h.tasks.SetPosition(c.Request.Context(), principal, c.Param("id"), req.Status, *req.Position, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"task": taskView(task)})
	}
}

type setAssigneeRequest struct {
	AssignedTo *string `json:"assigned_to"` // null clears the assignee
}

// SetAssigneeHandler changes or clears the task's assignee
// PUT /api/v1/tasks/:id/assignee
func (h *TaskHandlers) SetAssigneeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		var req setAssigneeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		task, err := h.tasks.Reassign(c.Request.Context(), principal, c.Param("id"), req.AssignedTo, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"task": taskView(task)})
	}
}

type setPriorityRequest struct {
	Priority string `json:"priority" binding:"required"`
}

// SetPriorityHandler changes the task's priority
// PUT /api/v1/tasks/:id/priority
func (h *TaskHandlers) SetPriorityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		var req setPriorityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		task, err := h.tasks.SetPriority(c.Request.Context(), principal, c.Param("id"), req.Priority, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"task": taskView(task)})
	}
}

// DeleteTaskHandler deletes a task
// DELETE /api/v1/tasks/:id
func (h *TaskHandlers) DeleteTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		if err := h.tasks.DeleteTask(c.Request.Context(), principal, c.Param("id"), c.ClientIP()); err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
	}
}

// ListUrgentHandler lists visible open tasks ranked by urgency score
// GET /api/v1/tasks/urgent?limit=10
func (h *TaskHandlers) ListUrgentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if limit < 0 {
			limit = 0
		}

		tasks, err := h.tasks.ListUrgent(c.Request.Context(), principal, limit)
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"tasks": scoredTaskViews(tasks)})
	}
}

// ListOverdueHandler lists visible open tasks past their due date
// GET /api/v1/tasks/overdue
func (h *TaskHandlers) ListOverdueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		tasks, err := h.tasks.ListOverdue(c.Request.Context(), principal)
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"tasks": scoredTaskViews(tasks)})
	}
}

func taskView(t *models.Task) gin.H {
	return gin.H{
		"id":          t.ID,
		"org_id":      t.OrgID,
		"title":       t.Title,
		"description": t.Description,
		"status":      t.Status,
		"priority":    t.Priority,
		"assigned_to": t.AssignedTo,
		"created_by":  t.CreatedBy,
		"due_date":    t.DueDate,
		"position":    t.Position,
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	}
}

func taskListView(t *models.TaskWithNames) gin.H {
	view := taskView(&t.Task)
	view["assigned_to_name"] = t.AssignedToName
	view["created_by_name"] = t.CreatedByName
	return view
}

func scoredTaskViews(tasks []*services.ScoredTask) []gin.H {
	views := make([]gin.H, 0, len(tasks))
	for _, t := range tasks {
		view := taskListView(t.TaskWithNames)
		view["urgency_score"] = t.UrgencyScore
		view["days_overdue"] = t.DaysOverdue
		views = append(views, view)
	}
	return views
}
