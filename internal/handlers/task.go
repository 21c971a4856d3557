package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/middleware"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/pkg/response"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// List returns the caller's tasks
// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	var req services.TaskFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tasks)
}

// Metadata returns categories and priorities
// GET /api/tasks/metadata
func (h *TaskHandler) Metadata(c *gin.Context) {
	meta, err := h.taskService.Metadata(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, meta)
}

// GetByID returns one of the caller's tasks
// GET /api/tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	task, err := h.taskService.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, task)
}

// Create creates a task owned by the caller
// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, task)
}

// Update applies a partial update
// PATCH /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, task)
}

// Delete removes a task and its comments
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.taskService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessMessage(c, "Task deleted successfully", nil)
}
