package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(svc *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: svc}
}

// GetStats returns the counters for the caller's role
// GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats := h.dashboardService.GetStats(c.Request.Context(), middleware.GetPrincipal(c))
	response.Success(c, stats)
}

// GET /api/dashboard/recent
func (h *DashboardHandler) Recent(c *gin.Context) {
	response.Success(c, h.dashboardService.Recent(c.Request.Context(), middleware.GetPrincipal(c)))
}
