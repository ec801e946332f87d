// Package api wires together all HTTP routes.
//
// Route grouping:
//   - /api/v1/organizations and /api/v1/auth/login are unauthenticated (signup
//     and login have no session yet) and sit behind the auth rate limiter.
//   - Everything else under /api/v1/ requires a valid session token; the admin
//     group additionally requires the admin role.
//   - /health is unauthenticated for load balancer probes; Prometheus metrics
//     are served by the telemetry side listener, not this router.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flowdeck/flowdeck/internal/api/admin"
	"github.com/flowdeck/flowdeck/internal/api/board"
	"github.com/flowdeck/flowdeck/internal/api/dashboard"
	"github.com/flowdeck/flowdeck/internal/api/identity"
	"github.com/flowdeck/flowdeck/internal/api/meetings"
	"github.com/flowdeck/flowdeck/internal/config"
	"github.com/flowdeck/flowdeck/internal/db/repositories"
	"github.com/flowdeck/flowdeck/internal/middleware"
)

// BackgroundServices holds resources started by SetupRouter that must be
// stopped during graceful shutdown, after the HTTP server has drained.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops all background goroutines.
func (bg *BackgroundServices) Shutdown() {
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("background services stopped")
}

// SetupRouter builds the Gin engine with the full middleware chain and all
// route groups registered.
func SetupRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(corsMiddleware(cfg.Security.CORS))

	users := repositories.NewUserRepository(db)

	identityHandlers := identity.NewHandlers(db)
	employeeHandlers := admin.NewEmployeeHandlers(db)
	activityHandlers := admin.NewActivityHandlers(db)
	taskHandlers := board.NewTaskHandlers(db)
	meetingHandlers := meetings.NewHandlers(db)
	dashboardHandlers := dashboard.NewHandlers(db)

	router.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Unauthenticated endpoints, rate limited per client IP.
	public := v1.Group("")
	if cfg.Security.RateLimiting.Enabled {
		limiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig(
			cfg.Security.RateLimiting.RequestsPerMinute,
			cfg.Security.RateLimiting.Burst,
		))
		bg.rateLimiters = append(bg.rateLimiters, limiter)
		public.Use(middleware.RateLimitMiddleware(limiter))
	}
	public.POST("/organizations", identityHandlers.CreateOrganizationHandler())
	public.POST("/auth/login", identityHandlers.LoginHandler())

	// Authenticated endpoints.
	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(users))

	authed.POST("/auth/logout", identityHandlers.LogoutHandler())

	adminGroup := authed.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin())
	adminGroup.GET("/employees", employeeHandlers.ListEmployeesHandler())
	adminGroup.POST("/employees", employeeHandlers.CreateEmployeeHandler())
	adminGroup.PUT("/employees/:id", employeeHandlers.UpdateEmployeeHandler())
	adminGroup.POST("/employees/:id/deactivate", employeeHandlers.DeactivateEmployeeHandler())
	adminGroup.POST("/employees/:id/reset-password", employeeHandlers.ResetPasswordHandler())
	adminGroup.GET("/activity", activityHandlers.ListActivityHandler())

	authed.GET("/tasks", taskHandlers.ListTasksHandler())
	authed.POST("/tasks", taskHandlers.CreateTaskHandler())
	authed.GET("/tasks/urgent", taskHandlers.ListUrgentHandler())
	authed.GET("/tasks/overdue", taskHandlers.ListOverdueHandler())
	authed.PUT("/tasks/:id/status", taskHandlers.SetStatusHandler())
	authed.PUT("/tasks/:id/position", taskHandlers.SetPositionHandler())
	authed.PUT("/tasks/:id/assignee", taskHandlers.SetAssigneeHandler())
	authed.PUT("/tasks/:id/priority", taskHandlers.SetPriorityHandler())
	authed.DELETE("/tasks/:id", taskHandlers.DeleteTaskHandler())

	authed.GET("/meetings", meetingHandlers.ListMeetingsHandler())
	authed.POST("/meetings", meetingHandlers.CreateMeetingHandler())
	authed.GET("/meetings/:id", meetingHandlers.GetMeetingHandler())
	authed.GET("/meetings/:id/summary", meetingHandlers.SummaryHandler())
	authed.PUT("/meetings/:id/rsvp", meetingHandlers.RSVPHandler())

	authed.GET("/dashboard", dashboardHandlers.MetricsHandler())
	authed.GET("/dashboard/organization", dashboardHandlers.OrganizationHandler())
	authed.GET("/dashboard/users/:id/performance", dashboardHandlers.UserPerformanceHandler())

	return router, bg
}

// corsMiddleware applies the configured CORS policy. An allowed_origins entry
// of "*" echoes any Origin; otherwise the request Origin must match exactly.
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
