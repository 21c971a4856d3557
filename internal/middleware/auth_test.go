package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	adminUser = &models.User{ID: "admin-1", Email: "admin@x.com", RoleID: models.RoleAdminID, Role: &models.Role{ID: models.RoleAdminID, Name: models.RoleAdmin}}
	plainUser = &models.User{ID: "user-1", Email: "user@x.com", RoleID: models.RoleUserID, Role: &models.Role{ID: models.RoleUserID, Name: models.RoleUser}}
)

// stubAuthenticator resolves a fixed set of tokens.
type stubAuthenticator map[string]*models.User

func (s stubAuthenticator) AuthenticateAccessToken(_ context.Context, token string) (*models.User, error) {
	switch token {
	case "expired":
		return nil, &services.Error{Kind: services.KindTokenExpired, Message: "Token expired"}
	case "broken":
		return nil, errors.New("db unavailable")
	}
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, &services.Error{Kind: services.KindUnauthenticated, Message: "Invalid token"}
}

var testAuth = stubAuthenticator{"admin-token": adminUser, "user-token": plainUser}

func newAuthRouter(gates ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(Authenticate(testAuth))
	router.Use(gates...)
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(200, gin.H{"user_id": GetUserID(c), "role": GetRole(c)})
	})
	return router
}

func doGet(router http.Handler, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestAuthenticate_NoHeader(t *testing.T) {
	w := doGet(newAuthRouter(), "")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if body := decodeBody(t, w); body.ErrorCode != response.CodeUnauthenticated {
		t.Errorf("error_code = %q, expected %q", body.ErrorCode, response.CodeUnauthenticated)
	}
}

func TestAuthenticate_InvalidFormat(t *testing.T) {
	router := newAuthRouter()

	testCases := []string{
		"user-token",
		"Basic user-token",
		"Bearer",
		"Bearer ",
		"bearer user-token",
	}

	for _, authHeader := range testCases {
		w := doGet(router, authHeader)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected status %d, got %d", authHeader, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestAuthenticate_TokenErrors(t *testing.T) {
	tests := []struct {
		token      string
		wantStatus int
		wantCode   string
	}{
		{"expired", http.StatusUnauthorized, response.CodeTokenExpired},
		{"garbage", http.StatusUnauthorized, response.CodeInvalidToken},
		{"broken", http.StatusInternalServerError, response.CodeInternal},
	}

	router := newAuthRouter()
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			w := doGet(router, "Bearer "+tt.token)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			body := decodeBody(t, w)
			if body.ErrorCode != tt.wantCode {
				t.Errorf("error_code = %q, expected %q", body.ErrorCode, tt.wantCode)
			}
			if tt.token == "broken" && body.Message != "internal server error" {
				t.Errorf("internal error text leaked: %q", body.Message)
			}
		})
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	w := doGet(newAuthRouter(), "Bearer user-token")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["user_id"] != "user-1" || body["role"] != models.RoleUser {
		t.Errorf("unexpected context values: %v", body)
	}
}

func TestRequireRoles(t *testing.T) {
	router := newAuthRouter(RequireRoles(models.RoleAdmin))

	if w := doGet(router, "Bearer user-token"); w.Code != http.StatusForbidden {
		t.Errorf("user: expected status %d, got %d", http.StatusForbidden, w.Code)
	}
	if w := doGet(router, "Bearer admin-token"); w.Code != http.StatusOK {
		t.Errorf("admin: expected status %d, got %d", http.StatusOK, w.Code)
	}

	multi := newAuthRouter(RequireRoles(models.RoleAdmin, models.RoleUser))
	if w := doGet(multi, "Bearer user-token"); w.Code != http.StatusOK {
		t.Errorf("user with multi-role gate: expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRequireRoles_NoUser(t *testing.T) {
	router := gin.New()
	router.Use(RequireRoles(models.RoleAdmin))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if w := doGet(router, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	router := newAuthRouter(RequireAdmin())

	w := doGet(router, "Bearer user-token")
	if w.Code != http.StatusForbidden {
		t.Errorf("user: expected status %d, got %d", http.StatusForbidden, w.Code)
	}
	if body := decodeBody(t, w); body.ErrorCode != response.CodeForbidden {
		t.Errorf("error_code = %q, expected %q", body.ErrorCode, response.CodeForbidden)
	}

	if w := doGet(router, "Bearer admin-token"); w.Code != http.StatusOK {
		t.Errorf("admin: expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRequireAdmin_NoUser(t *testing.T) {
	router := gin.New()
	router.Use(RequireAdmin())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if w := doGet(router, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if u := CurrentUser(c); u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
	if id := GetUserID(c); id != "" {
		t.Errorf("expected empty user id, got %q", id)
	}
	if role := GetRole(c); role != "" {
		t.Errorf("expected empty role, got %q", role)
	}

	c.Set(ContextUser, "not a user")
	if u := CurrentUser(c); u != nil {
		t.Errorf("wrong type in context should yield nil, got %+v", u)
	}
}
