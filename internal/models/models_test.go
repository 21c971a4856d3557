package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	applog "github.com/huangang/taskmanager/pkg/logger"
	"gorm.io/gorm"
)

func TestUser_SanitizedStripsPassword(t *testing.T) {
	u := &User{ID: "u1", Email: "a@x.com", Password: "$2a$hash", RoleID: RoleUserID, Role: &Role{ID: RoleUserID, Name: RoleUser}}

	s := u.Sanitized()
	if s.Password != "" {
		t.Error("sanitized user should not carry the password hash")
	}
	if u.Password == "" {
		t.Error("Sanitized should not modify the original")
	}
	if s.Role == u.Role {
		t.Error("sanitized copy should not share the role pointer")
	}
	if s.RoleName() != RoleUser {
		t.Errorf("RoleName() = %q, expected %q", s.RoleName(), RoleUser)
	}
}

func TestUser_JSONOmitsPassword(t *testing.T) {
	data, err := json.Marshal(&User{ID: "u1", Email: "a@x.com", Password: "secret-hash"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret-hash") {
		t.Errorf("password hash leaked into JSON: %s", data)
	}
}

func TestUserUpdate_Columns(t *testing.T) {
	email := "new@x.com"
	role := RoleAdminID

	cols := UserUpdate{Email: &email, RoleID: &role}.Columns()
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %d: %v", len(cols), cols)
	}
	if cols["email"] != email {
		t.Errorf("email = %v", cols["email"])
	}
	if _, ok := cols["password"]; ok {
		t.Error("unset password must not be included")
	}
	if !(UserUpdate{}).IsEmpty() {
		t.Error("zero UserUpdate should be empty")
	}
}

func TestTaskUpdate_ColumnsAndApply(t *testing.T) {
	title := "new title"
	empty := ""
	status := TaskStatusCompleted
	due := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	upd := TaskUpdate{Title: &title, Description: &empty, Status: &status, DueDate: &due}
	cols := upd.Columns()
	if len(cols) != 4 {
		t.Fatalf("expected 4 columns, got %d: %v", len(cols), cols)
	}
	if cols["description"] != "" {
		t.Error("explicitly empty description should be written")
	}

	task := &Task{Title: "old", Status: TaskStatusPending, PriorityID: 2}
	upd.Apply(task)
	if task.Title != title || task.Status != status || task.PriorityID != 2 {
		t.Errorf("unexpected task after Apply: %+v", task)
	}
	if task.DueDate == nil || !task.DueDate.Equal(due) {
		t.Errorf("DueDate = %v", task.DueDate)
	}
}

func TestTaskStatus_Valid(t *testing.T) {
	for _, s := range []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if TaskStatus("DONE").Valid() {
		t.Error("DONE should not be valid")
	}
}

func TestRefreshToken_IsLive(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		token RefreshToken
		live  bool
	}{
		{"fresh", RefreshToken{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", RefreshToken{ExpiresAt: now.Add(-time.Second)}, false},
		{"revoked", RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.IsLive(now); got != tt.live {
				t.Errorf("IsLive() = %v, expected %v", got, tt.live)
			}
		})
	}
}

func TestGormLogger_IgnoresRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	applog.InitWithWriter("info", &buf)
	t.Cleanup(func() { applog.Init("info") })

	gl := newGormLogger(false)
	query := func() (string, int64) { return "SELECT * FROM users WHERE email = 'nobody@x.com'", 0 }

	gl.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Errorf("record not found should not be logged, got %q", buf.String())
	}

	gl.Trace(context.Background(), time.Now(), query, errors.New("disk I/O error"))
	if !strings.Contains(buf.String(), "disk I/O error") {
		t.Errorf("real query errors should be logged, got %q", buf.String())
	}
}
