package api

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pageTitles names every page shell by its route.
var pageTitles = map[string]string{
	"/":                   "Smart farming",
	"/login":              "Sign in",
	"/signup":             "Create account",
	"/reset-password":     "Reset password",
	"/pricing":            "Pricing",
	"/about":              "About",
	"/contact":            "Contact",
	"/dashboard":          "Dashboard",
	"/dashboard/:section": "Dashboard",
	"/profile":            "Profile",
	"/settings":           "Settings",
}

type pageData struct {
	Title   string
	Path    string
	Section string
	Demo    bool
}

// loadTemplates parses the embedded page shells.
func loadTemplates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/*.html"))
}

// PageHandler renders the HTML shells the web client mounts into.
type PageHandler struct {
	demoPrefix string
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(demoPrefix string) *PageHandler {
	return &PageHandler{demoPrefix: strings.TrimSuffix(demoPrefix, "/")}
}

// Page renders the shell registered for route.
func (h *PageHandler) Page(route string) gin.HandlerFunc {
	title := pageTitles[route]
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "page.html", pageData{
			Title:   title,
			Path:    c.Request.URL.Path,
			Section: c.Param("section"),
		})
	}
}

// Demo renders the demo dashboard shell.
func (h *PageHandler) Demo(c *gin.Context) {
	c.HTML(http.StatusOK, "page.html", pageData{
		Title:   "Demo dashboard",
		Path:    c.Request.URL.Path,
		Section: c.Param("section"),
		Demo:    true,
	})
}

// Register mounts every page shell on r.
func (h *PageHandler) Register(r gin.IRoutes) {
	for route := range pageTitles {
		r.GET(route, h.Page(route))
	}
	r.GET("/subscription", h.Subscription)
	if h.demoPrefix != "" {
		r.GET(h.demoPrefix, h.Demo)
		r.GET(h.demoPrefix+"/:section", h.Demo)
	}
}

// Subscription is never reached through the guard, which sends it to
// /pricing; it is registered so the guard sees the route.
func (h *PageHandler) Subscription(c *gin.Context) {
	c.Redirect(http.StatusFound, "/pricing")
}
