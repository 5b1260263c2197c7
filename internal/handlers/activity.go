package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/response"
)

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(svc *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: svc}
}

// GET /api/admin/activity
func (h *ActivityHandler) List(c *gin.Context) {
	var req services.ActivityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.activityService.List(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, resp)
}

// GET /api/admin/activity/events
func (h *ActivityHandler) Events(c *gin.Context) {
	events, err := h.activityService.Events(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"events": events})
}
