// Package session persists the bearer token in the browser cookie jar.
package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName holds the identity provider's ID token.
	CookieName = "__session"
	// RememberCookieName flags a "remember me" sign-in.
	RememberCookieName = "remember"

	DefaultMaxAge  = time.Hour
	rememberMaxAge = 30 * 24 * time.Hour
)

// Store writes, clears and reads the session cookies. Cookies are scoped to
// path "/" and sent with SameSite=Strict.
type Store struct {
	maxAge time.Duration
	secure bool
}

// NewStore returns a Store whose session cookie expires after maxAge.
// A non-positive maxAge falls back to DefaultMaxAge.
func NewStore(maxAge time.Duration, secure bool) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{maxAge: maxAge, secure: secure}
}

// MaxAge is the lifetime of the session cookie.
func (s *Store) MaxAge() time.Duration { return s.maxAge }

// Write replaces the session cookie with token.
func (s *Store) Write(c *gin.Context, token string) {
	s.set(c, CookieName, token, int(s.maxAge/time.Second))
}

// WriteRemember sets the remember cookie.
func (s *Store) WriteRemember(c *gin.Context) {
	s.set(c, RememberCookieName, "1", int(rememberMaxAge/time.Second))
}

// Clear expires both the session and the remember cookie.
func (s *Store) Clear(c *gin.Context) {
	s.set(c, CookieName, "", -1)
	s.set(c, RememberCookieName, "", -1)
}

// Read returns the session token carried by the request.
func (s *Store) Read(c *gin.Context) (string, bool) {
	return Token(c.Request)
}

// Remembered reports whether the request carries the remember cookie.
func (s *Store) Remembered(c *gin.Context) bool {
	v, err := c.Cookie(RememberCookieName)
	return err == nil && v == "1"
}

func (s *Store) set(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	// Not HttpOnly: the browser client reads the token to attach it as a
	// bearer header on API calls.
	c.SetCookie(name, value, maxAge, "/", "", s.secure, false)
}

// Token returns the non-empty session cookie of r.
func Token(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
