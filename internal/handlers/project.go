package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(svc *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: svc}
}

// List returns the projects visible to the caller
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, projects)
}

// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	detail, err := h.projectService.Get(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, detail)
}

// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.GetPrincipal(c), &req, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, project)
}

// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), &req, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, project)
}

// Delete removes the project and all of its tasks
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projectService.Delete(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), requestMeta(c)); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
