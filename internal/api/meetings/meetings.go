// Package meetings implements the meeting endpoints: scheduling with
// invitations, the detail and summary views, and self-service RSVP.
package meetings

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/flowdeck/flowdeck/internal/api/apierror"
	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/derive"
	"github.com/flowdeck/flowdeck/internal/middleware"
	"github.com/flowdeck/flowdeck/internal/services"
	"github.com/gin-gonic/gin"
)

// Handlers handles meeting endpoints
type Handlers struct {
	meetings *services.MeetingService
}

// NewHandlers creates a new meetings Handlers instance
func NewHandlers(db *sql.DB) *Handlers {
	return &Handlers{meetings: services.NewMeetingService(db)}
}

// ListMeetingsHandler lists the meetings visible to the caller
// GET /api/v1/meetings
func (h *Handlers) ListMeetingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		list, err := h.meetings.ListMeetings(c.Request.Context(), principal)
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		views := make([]gin.H, 0, len(list))
		for _, m := range list {
			views = append(views, meetingListView(m))
		}

		c.JSON(http.StatusOK, gin.H{"meetings": views})
	}
}

type createMeetingRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description"`
	MeetingDate     string   `json:"meeting_date" binding:"required"` // RFC3339
	DurationMinutes int      `json:"duration_minutes"`
	Location        string   `json:"location"`
	ParticipantIDs  []string `json:"participant_ids"`
}

// CreateMeetingHandler schedules a meeting and invites participants
// POST /api/v1/meetings
func (h *Handlers) CreateMeetingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		var req createMeetingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		meetingDate, err := time.Parse(time.RFC3339, req.MeetingDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid meeting_date, expected RFC3339"})
			return
		}

		meeting, err := h.meetings.CreateMeeting(c.Request.Context(), principal, services.CreateMeetingInput{
			Title:           req.Title,
			Description:     req.Description,
			MeetingDate:     meetingDate,
			DurationMinutes: req.DurationMinutes,
			Location:        req.Location,
		}, req.ParticipantIDs, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"meeting": meetingView(meeting)})
	}
}

// GetMeetingHandler retrieves one meeting with its participants
// GET /api/v1/meetings/:id
func (h *Handlers) GetMeetingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		detail, err := h.meetings.GetMeeting(c.Request.Context(), principal, c.Param("id"))
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		participants := make([]gin.H, 0, len(detail.Participants))
		for _, p := range detail.Participants {
			participants = append(participants, gin.H{
				"user_id":   p.UserID,
				"full_name": p.FullName,
				"email":     p.Email,
				"job_level": p.JobLevel,
				"status":    p.Status,
			})
		}

		view := meetingView(detail.Meeting)
		view["participants"] = participants
		view["my_status"] = detail.MyStatus

		c.JSON(http.StatusOK, gin.H{"meeting": view})
	}
}

type rsvpRequest struct {
	Status string `json:"status" binding:"required"` // accepted or declined
}

// RSVPHandler records the caller's own RSVP response
// PUT /api/v1/meetings/:id/rsvp
func (h *Handlers) RSVPHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		var req rsvpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		if err := h.meetings.SetParticipantStatus(c.Request.Context(), principal, c.Param("id"), req.Status, c.ClientIP()); err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "RSVP recorded", "status": req.Status})
	}
}

// SummaryHandler returns the RSVP counts of a meeting
// GET /api/v1/meetings/:id/summary
func (h *Handlers) SummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		summary, err := h.meetings.MeetingSummary(c.Request.Context(), principal, c.Param("id"))
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"summary": gin.H{
				"meeting_id":         summary.MeetingID,
				"title":              summary.Title,
				"total_participants": summary.TotalParticipants,
				"accepted_count":     summary.AcceptedCount,
				"declined_count":     summary.DeclinedCount,
				"pending_count":      summary.PendingCount,
				"formatted_duration": summary.FormattedDuration,
			},
		})
	}
}

func meetingView(m *models.Meeting) gin.H {
	return gin.H{
		"id":                 m.ID,
		"org_id":             m.OrgID,
		"title":              m.Title,
		"description":        m.Description,
		"meeting_date":       m.MeetingDate,
		"duration_minutes":   m.DurationMinutes,
		"formatted_duration": derive.FormatDuration(m.DurationMinutes),
		"location":           m.Location,
		"created_by":         m.CreatedBy,
		"created_at":         m.CreatedAt,
	}
}

func meetingListView(m *models.MeetingWithDetails) gin.H {
	view := meetingView(&m.Meeting)
	view["created_by_name"] = m.CreatedByName
	view["participant_count"] = m.ParticipantCount
	return view
}
