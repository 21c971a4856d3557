package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/middleware"
	"github.com/huangang/taskmanager/pkg/response"
)

// ProtectedHandler serves the role-gated probe routes used by the frontend.
type ProtectedHandler struct{}

func NewProtectedHandler() *ProtectedHandler {
	return &ProtectedHandler{}
}

// User GET /api/protected/user
func (h *ProtectedHandler) User(c *gin.Context) {
	response.SuccessMessage(c, "User access granted", gin.H{"user": middleware.CurrentUser(c)})
}

// Admin GET /api/protected/admin
func (h *ProtectedHandler) Admin(c *gin.Context) {
	response.SuccessMessage(c, "Admin access granted", gin.H{"user": middleware.CurrentUser(c)})
}
