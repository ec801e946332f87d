// Package apierror maps the service error taxonomy onto HTTP responses.
// Sentinel errors are matched with errors.Is so wrapping inside services does
// not change the status; anything unrecognized becomes a 500 with a generic
// message and the underlying error goes to the log only.
package apierror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/flowdeck/flowdeck/internal/services"
	"github.com/gin-gonic/gin"
)

// statusFor resolves a service error to its HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrRoleMismatch),
		errors.Is(err, services.ErrPermissionDenied),
		errors.Is(err, services.ErrNotAParticipant):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrDuplicateLoginID),
		errors.Is(err, services.ErrLastAdminProtected):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidAssignment),
		errors.Is(err, services.ErrInvalidParticipant):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes the error response for err. Known sentinels surface their
// own message; everything else is logged and reported generically.
func Respond(c *gin.Context, err error) {
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
