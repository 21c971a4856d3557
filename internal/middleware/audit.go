package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/services"
)

const maxAuditBody = 2000

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry services.AuditEntry)
}

// AuditLog records write operations (POST/PUT/PATCH/DELETE) of the routes it wraps.
func AuditLog(recorder AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if !isWriteMethod(method) {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = maskSensitiveFields(bodyBytes)
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		var email string
		if user := CurrentUser(c); user != nil {
			email = user.Email
		}

		level := services.AuditLevelInfo
		if status >= http.StatusBadRequest {
			level = services.AuditLevelWarning
		}

		recorder.Record(c.Request.Context(), services.AuditEntry{
			Level:     level,
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(email, method, c.Request.URL.Path, status),
			UserID:    GetUserID(c),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Extra: map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"body":   bodySnippet,
			},
		})
	}
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/api/admin/users/:id" + "PATCH" → module="Users", action="Update"
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	path = strings.TrimPrefix(path, "admin/")

	parts := strings.SplitN(path, "/", 2)
	module = parts[0]
	if module == "" {
		module = "unknown"
	}
	module = titleWords(strings.ReplaceAll(module, "-", " "))

	switch method {
	case http.MethodPost:
		action = "Create"
	case http.MethodPut, http.MethodPatch:
		action = "Update"
	case http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}

	return module, action
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// formatAuditMessage creates a human-readable audit message.
func formatAuditMessage(actor, method, path string, status int) string {
	if actor == "" {
		actor = "anonymous"
	}
	var b strings.Builder
	b.WriteString("[Audit] ")
	b.WriteString(actor)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString(" → ")
	if status >= 200 && status < 300 {
		b.WriteString("OK")
	} else {
		b.WriteString("Failed")
	}
	return b.String()
}

const (
	maskedValue       = "***"
	nonJSONBodyMarker = "[non-JSON body omitted]"
)

var sensitiveKeys = map[string]bool{
	"password":     true,
	"oldpassword":  true,
	"newpassword":  true,
	"secret":       true,
	"token":        true,
	"accesstoken":  true,
	"refreshtoken": true,
}

// maskSensitiveFields returns the body re-encoded with every sensitive key's
// value replaced. Bodies that are not JSON are never stored verbatim.
func maskSensitiveFields(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nonJSONBodyMarker
	}
	masked, err := json.Marshal(maskJSONValue(doc))
	if err != nil {
		return nonJSONBodyMarker
	}
	return string(masked)
}

func maskJSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if sensitiveKeys[strings.ToLower(k)] {
				val[k] = maskedValue
				continue
			}
			val[k] = maskJSONValue(inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = maskJSONValue(inner)
		}
		return val
	}
	return v
}
