package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/response"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(svc *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: svc}
}

// List returns the caller's colleagues
// GET /api/team
func (h *TeamHandler) List(c *gin.Context) {
	response.Success(c, h.teamService.Members(c.Request.Context(), middleware.GetPrincipal(c)))
}
