// Package middleware provides Gin HTTP middleware for authentication, rate
// limiting, security headers, and request instrumentation.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Recovery → RequestID → Metrics → SecurityHeaders → (RateLimit) → Auth → Handler
//
// Security headers run on all responses including errors. Rate limiting runs
// before auth on the login endpoints to block brute-force attempts before any
// bcrypt work. Auth populates the principal; role checks read from that
// context.
package middleware

import (
	"fmt"
	"time"

	"github.com/flowdeck/flowdeck/internal/telemetry"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware returns a Gin handler that records request count and
// latency for every request passing through the router.
//
// The path label is set from c.FullPath(), the matched Gin route template
// (e.g. /api/v1/tasks/:id/status) rather than the raw URL. Requests that do
// not match any registered route use the literal string "<no-route>" so
// unhandled paths do not inflate label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
