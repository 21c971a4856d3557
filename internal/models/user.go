package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Seeded role ids. RoleAdminID guards the admin-only route tree.
const (
	RoleAdminID uint = 1
	RoleUserID  uint = 2

	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Role is a named permission class referenced by users.
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`
}

// User represents an account. Password holds the bcrypt hash and is never serialized.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	RoleID    uint      `gorm:"index;not null" json:"roleId"`
	Role      *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }
func (Role) TableName() string { return "roles" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Sanitized returns a copy of u with the password hash stripped.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Password = ""
	if u.Role != nil {
		role := *u.Role
		cp.Role = &role
	}
	return &cp
}

// RoleName returns the name of the loaded role, or "" when it was not preloaded.
func (u *User) RoleName() string {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// UserUpdate is a partial update: only non-nil fields are written.
type UserUpdate struct {
	Email    *string
	Password *string // already hashed
	RoleID   *uint
}

// Columns returns the column set for the fields that were provided.
func (u UserUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	if u.Password != nil {
		cols["password"] = *u.Password
	}
	if u.RoleID != nil {
		cols["role_id"] = *u.RoleID
	}
	return cols
}

// IsEmpty reports whether no field was set.
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.Password == nil && u.RoleID == nil
}
