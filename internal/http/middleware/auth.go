// README: Firebase bearer-token auth for admin endpoints.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cargo/internal/infra"
)

const (
	ctxUID  = "caller_uid"
	ctxRole = "caller_role"

	RoleAdmin = "admin"
)

// Auth verifies "Authorization: Bearer <token>" and stores the caller uid and role.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUID, token.UID)
		c.Set(ctxRole, token.Role())
		c.Next()
	}
}

// RequireRole rejects callers whose role claim differs from role. Use after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}
