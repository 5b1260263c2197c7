package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/response"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(svc *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: svc}
}

// List returns every visible task across projects
// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.taskService.List(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, tasks)
}

// GET /api/projects/:id/tasks/:taskId
func (h *TaskHandler) GetByID(c *gin.Context) {
	detail, err := h.taskService.Get(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), c.Param("taskId"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, detail)
}

// POST /api/projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), &req, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, task)
}

// PUT /api/projects/:id/tasks/:taskId
func (h *TaskHandler) Update(c *gin.Context) {
	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), c.Param("taskId"), &req, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, task)
}

// DELETE /api/projects/:id/tasks/:taskId
func (h *TaskHandler) Delete(c *gin.Context) {
	err := h.taskService.Delete(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), c.Param("taskId"), requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
