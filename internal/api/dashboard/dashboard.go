// Package dashboard implements the aggregation endpoints: the landing-page
// metrics, the admin organization overview, and per-user performance.
package dashboard

import (
	"database/sql"
	"net/http"

	"github.com/flowdeck/flowdeck/internal/api/apierror"
	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/middleware"
	"github.com/flowdeck/flowdeck/internal/services"
	"github.com/gin-gonic/gin"
)

// Handlers handles dashboard endpoints
type Handlers struct {
	dashboard *services.DashboardService
}

// NewHandlers creates a new dashboard Handlers instance
func NewHandlers(db *sql.DB) *Handlers {
	return &Handlers{dashboard: services.NewDashboardService(db)}
}

// MetricsHandler returns the caller's dashboard
// GET /api/v1/dashboard
func (h *Handlers) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		metrics, err := h.dashboard.Metrics(c.Request.Context(), principal)
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		lanes := make(map[string][]gin.H, len(metrics.LaneOrder))
		for status, tasks := range metrics.TasksByLane {
			views := make([]gin.H, 0, len(tasks))
			for _, t := range tasks {
				views = append(views, taskSummaryView(t))
			}
			lanes[status] = views
		}

		upcoming := make([]gin.H, 0, len(metrics.UpcomingMeetings))
		for _, m := range metrics.UpcomingMeetings {
			upcoming = append(upcoming, gin.H{
				"id":                m.ID,
				"title":             m.Title,
				"meeting_date":      m.MeetingDate,
				"duration_minutes":  m.DurationMinutes,
				"location":          m.Location,
				"created_by_name":   m.CreatedByName,
				"participant_count": m.ParticipantCount,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"my_task_count":          metrics.MyTaskCount,
			"upcoming_meeting_count": metrics.UpcomingMeetingCount,
			"active_employee_count":  metrics.ActiveEmployeeCount,
			"lane_order":             metrics.LaneOrder,
			"tasks_by_lane":          lanes,
			"upcoming_meetings":      upcoming,
		})
	}
}

// OrganizationHandler returns the admin organization overview
// GET /api/v1/dashboard/organization
func (h *Handlers) OrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		overview, err := h.dashboard.OrganizationOverview(c.Request.Context(), principal)
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"active_employees": overview.ActiveEmployees,
			"total_tasks":      overview.TotalTasks,
			"completed_tasks":  overview.CompletedTasks,
			"completion_rate":  overview.CompletionRate,
			"total_meetings":   overview.TotalMeetings,
			"overdue_tasks":    overview.OverdueTasks,
		})
	}
}

// UserPerformanceHandler returns one user's productivity view
// GET /api/v1/dashboard/users/:id/performance
func (h *Handlers) UserPerformanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		perf, err := h.dashboard.UserPerformance(c.Request.Context(), principal, c.Param("id"))
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user_id":             perf.UserID,
			"display_name":        perf.DisplayName,
			"total_tasks":         perf.TotalTasks,
			"completed_tasks":     perf.CompletedTasks,
			"completion_rate":     perf.CompletionRate,
			"avg_completion_days": perf.AvgCompletionDays,
			"pending_invites":     perf.PendingInvites,
			"lane_counts":         perf.LaneCounts,
		})
	}
}

func taskSummaryView(t *models.TaskWithNames) gin.H {
	return gin.H{
		"id":               t.ID,
		"title":            t.Title,
		"status":           t.Status,
		"priority":         t.Priority,
		"assigned_to":      t.AssignedTo,
		"assigned_to_name": t.AssignedToName,
		"due_date":         t.DueDate,
		"position":         t.Position,
	}
}
