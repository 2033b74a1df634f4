package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farmsense-backend-go/internal/core"
)

// RequireAuth rejects requests whose session is not authenticated. Demo
// sessions pass only when allowDemo is set. It must run after
// SessionContext.
func RequireAuth(allowDemo bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil || sess.State() != core.StateAuthenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}
		if sess.IsDemo() && !allowDemo {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Not available in demo mode"})
			return
		}
		c.Next()
	}
}
