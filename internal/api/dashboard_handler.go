package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farmsense-backend-go/internal/core"
	"farmsense-backend-go/internal/middleware"
)

// DashboardHandler serves the dashboard sample data.
type DashboardHandler struct {
	dashboardService core.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(ds core.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: ds}
}

// Metrics handles GET /api/dashboard/metrics
func (h *DashboardHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboardService.Metrics(middleware.GetSession(c).User()))
}
