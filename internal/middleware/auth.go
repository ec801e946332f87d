// auth.go provides the session authentication middleware. The token carries
// only the user id; the principal is rebuilt from a fresh user row on every
// request so a deactivated account is cut off at its next request, not at
// token expiry.
package middleware

import (
	"net/http"
	"strings"

	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/db/repositories"
	"github.com/gin-gonic/gin"
)

const (
	// PrincipalKey is the gin.Context key holding the auth.Principal of the request.
	PrincipalKey = "principal"

	// PrincipalUserIDKey is the gin.Context key holding the authenticated user id,
	// kept separately for middleware that only needs the id (rate limiting).
	PrincipalUserIDKey = "user_id"
)

// AuthMiddleware validates the Bearer session token, loads the user, and
// stores the resolved principal in the request context.
func AuthMiddleware(users *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired session token",
			})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}

		if user == nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Account not found or deactivated",
			})
			return
		}

		principal := auth.PrincipalFromUser(user)
		c.Set(PrincipalKey, principal)
		c.Set(PrincipalUserIDKey, principal.UserID)

		c.Next()
	}
}

// RequireAdmin rejects requests whose principal does not hold the admin role.
// Must be registered after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok || !principal.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin role required",
			})
			return
		}

		c.Next()
	}
}

// PrincipalFrom retrieves the authenticated principal stored by AuthMiddleware.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return auth.Principal{}, false
	}
	principal, ok := v.(auth.Principal)
	return principal, ok
}
