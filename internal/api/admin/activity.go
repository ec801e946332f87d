// activity.go implements the audit trail view: filtered, paginated reads over
// the append-only activity log, scoped to the admin's organization.
package admin

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/flowdeck/flowdeck/internal/db/repositories"
	"github.com/flowdeck/flowdeck/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ActivityHandlers handles the audit trail endpoints
type ActivityHandlers struct {
	activity *repositories.ActivityRepository
}

// NewActivityHandlers creates a new ActivityHandlers instance
func NewActivityHandlers(db *sql.DB) *ActivityHandlers {
	return &ActivityHandlers{activity: repositories.NewActivityRepository(db)}
}

// ListActivityHandler lists audit entries for the organization, newest first
// GET /api/v1/admin/activity?user_id=&action=&entity=&since=&page=1&per_page=50
func (h *ActivityHandlers) ListActivityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 200 {
			perPage = 50
		}

		var filters repositories.ActivityFilters
		if v := c.Query("user_id"); v != "" {
			filters.UserID = &v
		}
		if v := c.Query("action"); v != "" {
			filters.Action = &v
		}
		if v := c.Query("entity"); v != "" {
			filters.EntityTable = &v
		}
		if v := c.Query("since"); v != "" {
			since, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since timestamp, expected RFC3339"})
				return
			}
			filters.Since = &since
		}

		entries, err := h.activity.ListByOrg(c.Request.Context(), principal.OrgID, filters, perPage, (page-1)*perPage)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list activity"})
			return
		}

		views := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			views = append(views, gin.H{
				"id":           e.ID,
				"user_id":      e.UserID,
				"action":       e.Action,
				"entity_table": e.EntityTable,
				"entity_id":    e.EntityID,
				"details":      e.Details,
				"ip_address":   e.IPAddress,
				"created_at":   e.CreatedAt,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"activity": views,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
			},
		})
	}
}
