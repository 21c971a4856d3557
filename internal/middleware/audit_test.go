package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/services"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []services.AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, entry services.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func TestAuditLog_RecordsWrites(t *testing.T) {
	rec := &recordingAudit{}
	router := gin.New()
	router.Use(Authenticate(testAuth), AuditLog(rec))
	router.PATCH("/api/admin/users/:id", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/api/admin/users", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", "/api/admin/users/42", strings.NewReader(`{"email":"a@x.com","password":"hunter22"}`))
	req.Header.Set("Authorization", "Bearer admin-token")
	router.ServeHTTP(w, req)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	router.ServeHTTP(w, req)

	if len(rec.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Module != "Users" || e.Action != "Update" {
		t.Errorf("module/action = %q/%q", e.Module, e.Action)
	}
	if e.UserID != adminUser.ID {
		t.Errorf("UserID = %q, expected %q", e.UserID, adminUser.ID)
	}
	if e.Level != services.AuditLevelInfo {
		t.Errorf("Level = %q", e.Level)
	}
	body := e.Extra.(map[string]interface{})["body"].(string)
	if strings.Contains(body, "hunter22") {
		t.Errorf("password leaked into audit body: %s", body)
	}
}

func TestParseRouteInfo(t *testing.T) {
	tests := []struct {
		path, method   string
		module, action string
	}{
		{"/api/admin/users/:id", "DELETE", "Users", "Delete"},
		{"/api/admin/users", "POST", "Users", "Create"},
		{"/api/tasks/:id", "PATCH", "Tasks", "Update"},
		{"/api/audit-logs", "PUT", "Audit Logs", "Update"},
		{"", "POST", "Unknown", "Create"},
	}
	for _, tt := range tests {
		module, action := parseRouteInfo(tt.path, tt.method)
		if module != tt.module || action != tt.action {
			t.Errorf("parseRouteInfo(%q, %q) = %q, %q; expected %q, %q", tt.path, tt.method, module, action, tt.module, tt.action)
		}
	}
}

func TestFormatAuditMessage(t *testing.T) {
	if got := formatAuditMessage("a@x.com", "POST", "/api/admin/users", 201); got != "[Audit] a@x.com POST /api/admin/users → OK" {
		t.Errorf("got %q", got)
	}
	if got := formatAuditMessage("", "DELETE", "/api/admin/users/1", 403); got != "[Audit] anonymous DELETE /api/admin/users/1 → Failed" {
		t.Errorf("got %q", got)
	}
}

func TestMaskSensitiveFields(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", `{"password":"secret"}`, `{"password":"***"}`},
		{"whitespace", `{"email":"a@x.com", "password": "secret"}`, `{"email":"a@x.com","password":"***"}`},
		{"camel case keys", `{"oldPassword":"a","newPassword":"b"}`, `{"newPassword":"***","oldPassword":"***"}`},
		{"refresh token", `{"refreshToken":"abc"}`, `{"refreshToken":"***"}`},
		{"non string value", `{"password":12345,"roleId":2}`, `{"password":"***","roleId":2}`},
		{"untouched", `{"roleId":2}`, `{"roleId":2}`},
		{"array", `[{"password":"a"},{"password":"b"}]`, `[{"password":"***"},{"password":"***"}]`},
		{"nested", `{"user":{"token":"t"}}`, `{"user":{"token":"***"}}`},
		{"escaped quote", `{"email":"b@x.com","password":"pa\"ss-SECRETTAIL","roleId":2}`, `{"email":"b@x.com","password":"***","roleId":2}`},
		{"cut inside value", `{"email":"b@x.com","password":"hunter2-SECRETTA`, nonJSONBodyMarker},
		{"not json", `password=hunter2`, nonJSONBodyMarker},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskSensitiveFields([]byte(tt.in))
			if got != tt.want {
				t.Errorf("maskSensitiveFields(%s) = %s, expected %s", tt.in, got, tt.want)
			}
			if strings.Contains(got, "SECRETTAIL") || strings.Contains(got, "hunter2") {
				t.Errorf("secret fragment stored in audit body: %s", got)
			}
		})
	}
}

func TestAuditLog_MasksBeforeTruncating(t *testing.T) {
	rec := &recordingAudit{}
	router := gin.New()
	router.Use(AuditLog(rec))
	router.POST("/api/admin/users", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	padding := strings.Repeat("x", maxAuditBody-20)
	payload := `{"note":"` + padding + `","password":"pa\"ss-SECRETTAIL-0123456789"}`

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/admin/users", strings.NewReader(payload))
	router.ServeHTTP(w, req)

	if len(rec.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(rec.entries))
	}
	body := rec.entries[0].Extra.(map[string]interface{})["body"].(string)
	if strings.Contains(body, "SECRETTAIL") || strings.Contains(body, "pa\\\"ss") {
		t.Errorf("password leaked into truncated audit body: %s", body)
	}
	if !strings.HasSuffix(body, "...[truncated]") {
		t.Errorf("long body should be truncated, got suffix %q", body[len(body)-20:])
	}
}
