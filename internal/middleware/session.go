package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farmsense-backend-go/internal/core"
	"farmsense-backend-go/internal/identity"
	"farmsense-backend-go/internal/session"
)

const (
	sessionKey = "session"
	userIDKey  = "userID"
)

// SessionContext gives every request its own core.Session. The session is
// populated from a bearer header or the session cookie, or with the demo
// identity under the demo prefix, and closed when the request ends.
func SessionContext(auth core.AuthService, store *session.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := core.NewSession()
		defer sess.Close()
		c.Set(sessionKey, sess)

		if auth.IsDemoPath(c.Request.URL.Path) || auth.IsDemoPath(c.Request.Referer()) {
			user := auth.EnterDemo(sess)
			c.Set(userIDKey, user.ID)
			c.Next()
			return
		}

		token, fromHeader, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}
		if token == "" {
			token, _ = store.Read(c)
		}
		if token != "" {
			user, err := auth.Rehydrate(c.Request.Context(), sess, token)
			switch {
			case err == nil:
				c.Set(userIDKey, user.ID)
				sess.SetRemember(store.Remembered(c))
			case isInvalidToken(err):
				if !fromHeader {
					store.Clear(c)
				}
			default:
				logger.Warn("Session rehydration failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
			}
		}
		c.Next()
	}
}

// bearerToken extracts the token of an Authorization header. ok is false
// when the header is present but malformed.
func bearerToken(c *gin.Context) (token string, fromHeader, ok bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false, true
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false, false
	}
	return parts[1], true, true
}

func isInvalidToken(err error) bool {
	kind, ok := identity.KindOf(err)
	return ok && kind == identity.KindInvalidToken
}

// GetSession returns the request's session. It is never nil once
// SessionContext has run.
func GetSession(c *gin.Context) *core.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(*core.Session); ok {
			return sess
		}
	}
	return nil
}

// UserID returns the authenticated user id of the request.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(userIDKey)
	return id, id != ""
}
