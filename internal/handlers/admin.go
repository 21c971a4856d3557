package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/middleware"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/pkg/response"
)

// AdminHandler serves user management and the audit trail. Every route is
// mounted behind RequireAdmin.
type AdminHandler struct {
	userService  *services.UserService
	auditService *services.AuditLogService
}

func NewAdminHandler(userService *services.UserService, auditService *services.AuditLogService) *AdminHandler {
	return &AdminHandler{userService: userService, auditService: auditService}
}

// ListUsers GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, users)
}

// GetUser GET /api/admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

// CreateUser POST /api/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, user)
}

// UpdateUser PATCH /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

// DeleteUser DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessMessage(c, "User deleted successfully", nil)
}

// ListRoles GET /api/admin/roles
func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.userService.ListRoles(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, roles)
}

// ListAuditLogs GET /api/admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	var req services.AuditLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.auditService.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}
