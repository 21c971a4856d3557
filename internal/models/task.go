package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskCategory is static reference data (Work, Personal, ...).
type TaskCategory struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`
}

// TaskPriority is static reference data; Level orders priorities for sorting.
type TaskPriority struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Level int    `gorm:"not null;default:0" json:"level"`
}

// Task is a unit of work owned by the user who created it.
type Task struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Description *string       `gorm:"type:text" json:"description"`
	Status      TaskStatus    `gorm:"size:20;index;not null;default:PENDING" json:"status"`
	PriorityID  uint          `gorm:"index;not null" json:"priorityId"`
	Priority    *TaskPriority `gorm:"foreignKey:PriorityID" json:"priority,omitempty"`
	CategoryID  uint          `gorm:"index;not null" json:"categoryId"`
	Category    *TaskCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	DueDate     *time.Time    `gorm:"index" json:"dueDate"`
	CreatedByID string        `gorm:"index;size:36;not null" json:"createdById"`
	CreatedBy   *User         `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	CreatedAt   time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (Task) TableName() string         { return "tasks" }
func (TaskCategory) TableName() string { return "task_categories" }
func (TaskPriority) TableName() string { return "task_priorities" }

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TaskUpdate is a partial update: only non-nil fields are written.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	PriorityID  *uint
	CategoryID  *uint
	DueDate     *time.Time
}

// Columns returns the column set for the fields that were provided.
func (u TaskUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.PriorityID != nil {
		cols["priority_id"] = *u.PriorityID
	}
	if u.CategoryID != nil {
		cols["category_id"] = *u.CategoryID
	}
	if u.DueDate != nil {
		cols["due_date"] = *u.DueDate
	}
	return cols
}

// Apply copies the provided fields onto t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		d := *u.Description
		t.Description = &d
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.PriorityID != nil {
		t.PriorityID = *u.PriorityID
	}
	if u.CategoryID != nil {
		t.CategoryID = *u.CategoryID
	}
	if u.DueDate != nil {
		d := *u.DueDate
		t.DueDate = &d
	}
}
