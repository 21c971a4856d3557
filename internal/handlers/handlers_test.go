package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/config"
	"github.com/huangang/taskmanager/internal/middleware"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/internal/store/memstore"
	"github.com/huangang/taskmanager/internal/utils"
	"github.com/huangang/taskmanager/pkg/response"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testRefreshTTL = 7 * 24 * time.Hour

func newTestAuthService() *services.AuthService {
	codec := utils.NewTokenCodec(config.JWTConfig{
		AccessSecret:     "access-test",
		AccessExpiresIn:  config.Duration(15 * time.Minute),
		RefreshSecret:    "refresh-test",
		RefreshExpiresIn: config.Duration(testRefreshTTL),
	})
	return services.NewAuthService(memstore.New(), codec,
		services.WithPasswordHasher(utils.BcryptHasher{Cost: bcrypt.MinCost}))
}

func newAuthRouter(authService *services.AuthService, secure bool) *gin.Engine {
	h := NewAuthHandler(authService, testRefreshTTL, secure)
	r := gin.New()
	auth := r.Group("/api/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh-token", h.Refresh)
	auth.POST("/logout", h.Logout)

	authed := auth.Group("", middleware.Authenticate(authService))
	authed.GET("/me", h.GetCurrentUser)
	authed.POST("/change-password", h.ChangePassword)
	return r
}

type apiResult struct {
	Code    int
	Body    response.Response
	Data    map[string]interface{}
	Cookies []*http.Cookie
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, header http.Header, cookies ...*http.Cookie) apiResult {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	res := apiResult{Code: w.Code, Cookies: w.Result().Cookies()}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.Body), "body: %s", w.Body.String())
	if m, ok := res.Body.Data.(map[string]interface{}); ok {
		res.Data = m
	}
	return res
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func refreshCookie(t *testing.T, cookies []*http.Cookie) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == RefreshCookieName {
			return c
		}
	}
	t.Fatalf("response did not set %s cookie", RefreshCookieName)
	return nil
}
