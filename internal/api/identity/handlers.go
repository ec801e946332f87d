// Package identity implements the unauthenticated account endpoints:
// organization signup, login, and logout.
package identity

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

// Handlers handles organization signup and session endpoints
type Handlers struct {
	identity *services.IdentityService
}

// NewHandlers creates a new identity Handlers instance
func NewHandlers(db *sql.DB) *Handlers {
	return &Handlers{identity: services.NewIdentityService(db)}
}

type createOrganizationRequest struct {
	Name          string `json:"name" binding:"required"`
	AdminName     string `json:"admin_name" binding:"required"`
	AdminEmail    string `json:"admin_email"`
	AdminLoginID  string `json:"admin_login_id" binding:"required"`
	AdminPassword string `json:"admin_password" binding:"required"`
}

// CreateOrganizationHandler provisions a new organization with its first admin
// POST /api/v1/organizations
func (h *Handlers) CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		org, admin, err := h.identity.CreateOrganization(c.Request.Context(), req.Name, services.AdminProfile{
			FullName: req.AdminName,
			Email:    req.AdminEmail,
			LoginID:  req.AdminLoginID,
		}, req.AdminPassword, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"organization": gin.H{
				"id":         org.ID,
				"name":       org.Name,
				"created_at": org.CreatedAt,
			},
			"admin": userView(admin),
		})
	}
}

type loginRequest struct {
	LoginID  string `json:"login_id" binding:"required"`
	Password string `json:"password" binding:"required"`
	Surface  string `json:"surface"`
}

// LoginHandler authenticates a login id and password and issues a session token
// POST /api/v1/auth/login
func (h *Handlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		principal, token, err := h.identity.Authenticate(c.Request.Context(), req.LoginID, req.Password, req.Surface, c.ClientIP())
		if err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user": gin.H{
				"id":           principal.UserID,
				"org_id":       principal.OrgID,
				"login_id":     principal.LoginID,
				"full_name":    principal.FullName,
				"role":         principal.Role,
				"display_name": derive.DisplayName(principal.FullName, principal.Role),
			},
		})
	}
}

// LogoutHandler records the end of the session
// POST /api/v1/auth/logout
func (h *Handlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.PrincipalFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		if err := h.identity.Logout(c.Request.Context(), principal, c.ClientIP()); err != nil {
			apierror.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
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
