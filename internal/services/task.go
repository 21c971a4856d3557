package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/huangang/taskmanager/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

type CreateTaskRequest struct {
	Title       string            `json:"title" binding:"required,max=255"`
	Description *string           `json:"description"`
	Status      models.TaskStatus `json:"status"`
	PriorityID  uint              `json:"priorityId" binding:"required"`
	CategoryID  uint              `json:"categoryId" binding:"required"`
	DueDate     *time.Time        `json:"dueDate"`
}

type UpdateTaskRequest struct {
	Title       *string            `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string            `json:"description"`
	Status      *models.TaskStatus `json:"status"`
	PriorityID  *uint              `json:"priorityId"`
	CategoryID  *uint              `json:"categoryId"`
	DueDate     *time.Time         `json:"dueDate"`
}

func (r *UpdateTaskRequest) toUpdate() models.TaskUpdate {
	return models.TaskUpdate{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		PriorityID:  r.PriorityID,
		CategoryID:  r.CategoryID,
		DueDate:     r.DueDate,
	}
}

// TaskFilterRequest is the raw query string of a task listing.
// List parameters accept repeated keys and comma separated values.
type TaskFilterRequest struct {
	PriorityIDs   []string `form:"priorityIds"`
	Statuses      []string `form:"statuses"`
	DueDateFrom   string   `form:"dueDateFrom"`
	DueDateTo     string   `form:"dueDateTo"`
	CreatedAtFrom string   `form:"createdAtFrom"`
	CreatedAtTo   string   `form:"createdAtTo"`
	SortBy        string   `form:"sortBy"`
	SortDirection string   `form:"sortDirection"`
}

type TaskSortField string

const (
	SortByPriority  TaskSortField = "priority"
	SortByStatus    TaskSortField = "status"
	SortByDueDate   TaskSortField = "dueDate"
	SortByCreatedAt TaskSortField = "createdAt"
)

var sortColumns = map[TaskSortField]string{
	SortByPriority:  "task_priorities.level",
	SortByStatus:    "tasks.status",
	SortByDueDate:   "tasks.due_date",
	SortByCreatedAt: "tasks.created_at",
}

// TaskQuery is a validated task listing for one owner.
type TaskQuery struct {
	OwnerID       string
	PriorityIDs   []uint
	Statuses      []models.TaskStatus
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	CreatedAtFrom *time.Time
	CreatedAtTo   *time.Time
	SortBy        TaskSortField
	Desc          bool
}

// ParseTaskFilter validates req and builds the query for ownerID.
func ParseTaskFilter(ownerID string, req *TaskFilterRequest) (*TaskQuery, error) {
	q := &TaskQuery{OwnerID: ownerID, SortBy: SortByCreatedAt, Desc: true}
	if req == nil {
		return q, nil
	}

	for _, raw := range splitValues(req.PriorityIDs) {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return nil, newError(KindValidation, "priorityIds must be positive integers")
		}
		q.PriorityIDs = append(q.PriorityIDs, uint(id))
	}

	for _, raw := range splitValues(req.Statuses) {
		status := models.TaskStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return nil, newError(KindValidation, "statuses must be valid task statuses")
		}
		q.Statuses = append(q.Statuses, status)
	}

	var err error
	if q.DueDateFrom, err = parseBound(req.DueDateFrom, "dueDateFrom", false); err != nil {
		return nil, err
	}
	if q.DueDateTo, err = parseBound(req.DueDateTo, "dueDateTo", true); err != nil {
		return nil, err
	}
	if q.CreatedAtFrom, err = parseBound(req.CreatedAtFrom, "createdAtFrom", false); err != nil {
		return nil, err
	}
	if q.CreatedAtTo, err = parseBound(req.CreatedAtTo, "createdAtTo", true); err != nil {
		return nil, err
	}

	if req.SortBy != "" {
		field := TaskSortField(req.SortBy)
		if _, ok := sortColumns[field]; !ok {
			return nil, newError(KindValidation, "sortBy must be one of priority, status, dueDate, createdAt")
		}
		q.SortBy = field
	}

	switch strings.ToLower(req.SortDirection) {
	case "", "desc":
		q.Desc = true
	case "asc":
		q.Desc = false
	default:
		return nil, newError(KindValidation, "sortDirection must be asc or desc")
	}

	return q, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, splitAndTrim(v)...)
	}
	return out
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseBound accepts RFC 3339 or a plain date. A plain date used as an upper
// bound covers the whole day.
func parseBound(value, name string, upper bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, newError(KindValidation, name+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (q *TaskQuery) apply(db *gorm.DB) *gorm.DB {
	query := db.Model(&models.Task{}).Where("tasks.created_by_id = ?", q.OwnerID)

	if len(q.PriorityIDs) > 0 {
		query = query.Where("tasks.priority_id IN ?", q.PriorityIDs)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("tasks.status IN ?", q.Statuses)
	}
	if q.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *q.DueDateFrom)
	}
	if q.DueDateTo != nil {
		query = query.Where("tasks.due_date <= ?", *q.DueDateTo)
	}
	if q.CreatedAtFrom != nil {
		query = query.Where("tasks.created_at >= ?", *q.CreatedAtFrom)
	}
	if q.CreatedAtTo != nil {
		query = query.Where("tasks.created_at <= ?", *q.CreatedAtTo)
	}

	if q.SortBy == SortByPriority {
		query = query.Select("tasks.*").Joins("JOIN task_priorities ON task_priorities.id = tasks.priority_id")
	}
	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[SortByCreatedAt]
	}
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: column, Raw: true}, Desc: q.Desc})
	if q.SortBy != SortByCreatedAt {
		query = query.Order("tasks.created_at DESC")
	}
	return query
}

func withTaskRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Priority").Preload("Category").Preload("CreatedBy", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "email", "role_id")
	})
}

// List returns the owner's tasks matching the filter.
func (s *TaskService) List(ctx context.Context, userID string, req *TaskFilterRequest) ([]models.Task, error) {
	q, err := ParseTaskFilter(userID, req)
	if err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0)
	if err := withTaskRelations(q.apply(s.db.WithContext(ctx))).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get returns a task only to its owner. Other users see NotFound.
func (s *TaskService) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	var task models.Task
	err := withTaskRelations(s.db.WithContext(ctx)).
		Where("id = ? AND created_by_id = ?", id, userID).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "Task not found or you do not have permission to view it")
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Create(ctx context.Context, userID string, req *CreateTaskRequest) (*models.Task, error) {
	db := s.db.WithContext(ctx)

	status := req.Status
	if status == "" {
		status = models.TaskStatusPending
	}
	if !status.Valid() {
		return nil, newError(KindValidation, "Status must be a valid task status")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, newError(KindValidation, "Title is required")
	}
	if err := s.checkReferences(db, &req.CategoryID, &req.PriorityID); err != nil {
		return nil, err
	}

	task := models.Task{
		Title:       title,
		Description: req.Description,
		Status:      status,
		PriorityID:  req.PriorityID,
		CategoryID:  req.CategoryID,
		DueDate:     req.DueDate,
		CreatedByID: userID,
	}
	if err := db.Create(&task).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, task.ID)
}

func (s *TaskService) Update(ctx context.Context, userID, id string, req *UpdateTaskRequest) (*models.Task, error) {
	db := s.db.WithContext(ctx)

	if _, err := s.owned(db, userID, id, "update"); err != nil {
		return nil, err
	}
	var title *string
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		if trimmed == "" {
			return nil, newError(KindValidation, "Title is required")
		}
		title = &trimmed
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, newError(KindValidation, "Status must be a valid task status")
	}
	if err := s.checkReferences(db, req.CategoryID, req.PriorityID); err != nil {
		return nil, err
	}

	upd := req.toUpdate()
	upd.Title = title
	if cols := upd.Columns(); len(cols) > 0 {
		if err := db.Model(&models.Task{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID, id)
}

// Delete removes the task and its comments.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.owned(tx, userID, id, "delete"); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Task{}).Error
	})
}

type TaskMetadata struct {
	Categories []models.TaskCategory `json:"categories"`
	Priorities []models.TaskPriority `json:"priorities"`
}

// Metadata returns the reference data needed to build task forms.
func (s *TaskService) Metadata(ctx context.Context) (*TaskMetadata, error) {
	db := s.db.WithContext(ctx)
	meta := &TaskMetadata{}
	if err := db.Order("id ASC").Find(&meta.Categories).Error; err != nil {
		return nil, err
	}
	if err := db.Order("level ASC").Find(&meta.Priorities).Error; err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *TaskService) owned(db *gorm.DB, userID, id, action string) (*models.Task, error) {
	var task models.Task
	err := db.Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "Task not found")
	}
	if err != nil {
		return nil, err
	}
	if task.CreatedByID != userID {
		return nil, newError(KindForbidden, "You do not have permission to "+action+" this task")
	}
	return &task, nil
}

func (s *TaskService) checkReferences(db *gorm.DB, categoryID, priorityID *uint) error {
	if categoryID != nil {
		var count int64
		if err := db.Model(&models.TaskCategory{}).Where("id = ?", *categoryID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return newError(KindValidation, "Invalid category ID")
		}
	}
	if priorityID != nil {
		var count int64
		if err := db.Model(&models.TaskPriority{}).Where("id = ?", *priorityID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return newError(KindValidation, "Invalid priority ID")
		}
	}
	return nil
}
