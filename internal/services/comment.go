package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/huangang/taskmanager/internal/models"
	"gorm.io/gorm"
)

const maxCommentLength = 1000

type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
	TaskID  string `json:"taskId" binding:"required,uuid4"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < 1 || n > maxCommentLength {
		return "", newError(KindValidation, "Content must be between 1 and 1000 characters")
	}
	return content, nil
}

func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Preload("Author", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "email", "role_id")
	})
}

// ListByTask returns the comments of a task, newest first.
func (s *CommentService) ListByTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	err := withAuthor(s.db.WithContext(ctx)).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}

func (s *CommentService) Get(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := withAuthor(s.db.WithContext(ctx)).Where("id = ?", id).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "Comment not found")
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Create adds a comment authored by userID.
func (s *CommentService) Create(ctx context.Context, userID string, req *CreateCommentRequest) (*models.Comment, error) {
	content, err := validateContent(req.Content)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", req.TaskID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, newError(KindNotFound, "Task not found")
	}

	comment := models.Comment{Content: content, TaskID: req.TaskID, AuthorID: userID}
	if err := db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, comment.ID)
}

// Update changes the content. Only the author may edit a comment.
func (s *CommentService) Update(ctx context.Context, userID, id string, req *UpdateCommentRequest) (*models.Comment, error) {
	content, err := validateContent(req.Content)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != userID {
		return nil, newError(KindForbidden, "You can only update your own comments")
	}

	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a comment. Allowed for its author and for the owner of the task.
func (s *CommentService) Delete(ctx context.Context, userID, id string) error {
	var comment models.Comment
	err := s.db.WithContext(ctx).Preload("Task").Where("id = ?", id).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(KindNotFound, "Comment not found")
	}
	if err != nil {
		return err
	}

	isAuthor := comment.AuthorID == userID
	isTaskOwner := comment.Task != nil && comment.Task.CreatedByID == userID
	if !isAuthor && !isTaskOwner {
		return newError(KindForbidden, "You can only delete your own comments or comments on your tasks")
	}

	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{}).Error
}
