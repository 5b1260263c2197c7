package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{userService: svc}
}

// GET /api/admin/users
func (h *UserHandler) List(c *gin.Context) {
	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.userService.List(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, resp)
}

// UpdateRole replaces the user's roles with the requested one
// PUT /api/admin/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), middleware.GetPrincipal(c), id, req.Role, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, user)
}

// DELETE /api/admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), middleware.GetPrincipal(c), id, requestMeta(c)); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}
