package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/taskboard/internal/middleware"
	"github.com/huangang/taskboard/internal/services"
	"github.com/huangang/taskboard/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
	identity    *services.IdentityService
}

func NewAuthHandler(auth *services.AuthService, identity *services.IdentityService) *AuthHandler {
	return &AuthHandler{authService: auth, identity: identity}
}

// Register creates an employee account
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, resp)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, resp)
}

// Me returns the current user with the permissions of their roles
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	user, err := h.identity.FindUser(c.Request.Context(), p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"user":        user,
		"permissions": p.Permissions(),
	})
}

// Logout revokes the presented token
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.ExpiresAt == nil {
		response.Unauthorized(c, "no token")
		return
	}
	if err := h.authService.Logout(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out successfully"})
}
