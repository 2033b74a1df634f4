package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"farmsense-backend-go/internal/session"
)

var (
	protectedPrefixes = []string{"/dashboard", "/profile", "/settings"}
	publicOnlyPaths   = map[string]bool{"/": true, "/login": true, "/signup": true, "/reset-password": true}
)

// Guard decides whether a page request may proceed. It only looks at
// cookie presence; the token is validated by the API. A non-empty redirect
// is the location to send the browser to.
func Guard(path string, hasSession bool, demoPrefix string) (redirect string) {
	if path == "/subscription" {
		return "/pricing"
	}
	if demoPrefix != "" && (path == demoPrefix || strings.HasPrefix(path, demoPrefix+"/")) {
		return ""
	}
	if !hasSession && isProtected(path) {
		return "/login?redirect=" + path
	}
	if hasSession && publicOnlyPaths[path] {
		return "/dashboard"
	}
	return ""
}

func isProtected(path string) bool {
	for _, p := range protectedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// RouteGuard applies Guard to page routes.
func RouteGuard(demoPrefix string) gin.HandlerFunc {
	demoPrefix = strings.TrimSuffix(demoPrefix, "/")
	return func(c *gin.Context) {
		_, hasSession := session.Token(c.Request)
		if target := Guard(c.Request.URL.Path, hasSession, demoPrefix); target != "" {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}
