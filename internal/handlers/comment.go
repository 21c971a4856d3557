package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/middleware"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/pkg/response"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// ListByTask GET /api/comments/task/:taskId
func (h *CommentHandler) ListByTask(c *gin.Context) {
	comments, err := h.commentService.ListByTask(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, comments)
}

// GetByID GET /api/comments/:id
func (h *CommentHandler) GetByID(c *gin.Context) {
	comment, err := h.commentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, comment)
}

// Create POST /api/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req services.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, comment)
}

// Update PATCH /api/comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	var req services.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, comment)
}

// Delete DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.commentService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessMessage(c, "Comment deleted successfully", nil)
}
