package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"farmsense-backend-go/internal/session"
)

func TestGuard(t *testing.T) {
	cases := []struct {
		path       string
		hasSession bool
		want       string
	}{
		{"/dashboard/overview", false, "/login?redirect=/dashboard/overview"},
		{"/dashboard", false, "/login?redirect=/dashboard"},
		{"/profile", false, "/login?redirect=/profile"},
		{"/settings/billing", false, "/login?redirect=/settings/billing"},
		{"/login", true, "/dashboard"},
		{"/", true, "/dashboard"},
		{"/signup", true, "/dashboard"},
		{"/reset-password", true, "/dashboard"},
		{"/subscription", true, "/pricing"},
		{"/subscription", false, "/pricing"},
		{"/dashboard/overview", true, ""},
		{"/login", false, ""},
		{"/pricing", false, ""},
		{"/pricing", true, ""},
		{"/dashboards", false, ""},
		{"/demo", false, ""},
		{"/demo/crops", true, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Guard(tc.path, tc.hasSession, "/demo"), "path=%s session=%v", tc.path, tc.hasSession)
	}
}

func TestRouteGuardMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RouteGuard("/demo/"))
	ok := func(c *gin.Context) { c.String(http.StatusOK, "page") }
	r.GET("/login", ok)
	r.GET("/dashboard/*section", ok)
	r.GET("/subscription", ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/overview", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=/dashboard/overview", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "anything"})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/dashboard/overview", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "anything"})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subscription", nil))
	assert.Equal(t, "/pricing", w.Header().Get("Location"))
}
