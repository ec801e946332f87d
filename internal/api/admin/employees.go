// Package admin implements the admin console endpoints: employee account
// lifecycle and the audit activity view. Every route in this package sits
// behind the admin role middleware; the services still re-check the actor's
// role so the HTTP layer is not the only gate.
package admin

import (
	"database/sql"
	"net/http"

	"github.com/flowdeck/flowdeck/internal/api/apierror"
	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/derive"
	"github.com/flowdeck/flowdeck/internal/middleware"
	"github.com/flowdeck/flowdeck/internal/services"
	"github.com/gin-gonic/gin"
)

// EmployeeHandlers handles employee management endpoints
type EmployeeHandlers struct {
	identity *services.IdentityService
}

// NewEmployeeHandlers creates a new EmployeeHandlers instance
func NewEmployeeHandlers(db *sql.DB) *EmployeeHandlers {
	return &EmployeeHandlers{identity: services.NewIdentityService(db)}
}

// ListEmployeesHandler lists the active members of the organization
// GET /api/v1/admin/employees
func (h *EmployeeHandlers) ListEmployeesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		users, err := h.identity.ListEmployees(c.Request.Context(), principal)
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		views := make([]gin.H, 0, len(users))
		for _, u := range users {
			views = append(views, userView(u))
		}

		c.JSON(http.StatusOK, gin.H{"employees": views})
	}
}

type createEmployeeRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email"`
	JobLevel string `json:"job_level"`
}

// CreateEmployeeHandler creates an employee account with generated credentials.
// The generated password appears in this response only; it is never stored or
// shown again.
// POST /api/v1/admin/employees
func (h *EmployeeHandlers) CreateEmployeeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)

		var req createEmployeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		user, password, err := h.identity.CreateEmployee(c.Request.Context(), principal, req.FullName, req.Email, req.JobLevel, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"employee":           userView(user),
			"generated_login_id": user.LoginID,
			"generated_password": password,
		})
	}
}

type updateEmployeeRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email"`
	JobLevel string `json:"job_level" binding:"required"`
}

// UpdateEmployeeHandler edits an employee's profile
// PUT /api/v1/admin/employees/:id
func (h *EmployeeHandlers) UpdateEmployeeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)
		userID := c.Param("id")

		var req updateEmployeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		user, err := h.identity.EditUser(c.Request.Context(), principal, userID, req.FullName, req.Email, req.JobLevel, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"employee": userView(user)})
	}
}

// DeactivateEmployeeHandler soft-deactivates an account
// POST /api/v1/admin/employees/:id/deactivate
func (h *EmployeeHandlers) DeactivateEmployeeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)
		userID := c.Param("id")

		if err := h.identity.DeactivateUser(c.Request.Context(), principal, userID, c.ClientIP()); err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Employee deactivated"})
	}
}

// ResetPasswordHandler resets an account to its generated default password.
// The new password appears in this response only.
// POST /api/v1/admin/employees/:id/reset-password
func (h *EmployeeHandlers) ResetPasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.PrincipalFrom(c)
		userID := c.Param("id")

		password, err := h.identity.ResetCredential(c.Request.Context(), principal, userID, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"generated_password": password})
	}
}

func userView(u *models.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"org_id":       u.OrgID,
		"login_id":     u.LoginID,
		"full_name":    u.FullName,
		"email":        u.Email,
		"role":         u.Role,
		"job_level":    u.JobLevel,
		"is_active":    u.IsActive,
		"display_name": derive.DisplayName(u.FullName, u.Role),
		"created_at":   u.CreatedAt,
		"last_login":   u.LastLogin,
	}
}
