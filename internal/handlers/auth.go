package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/middleware"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/pkg/response"
)

const (
	RefreshCookieName = "refreshToken"
	RefreshCookiePath = "/api/auth"
)

type AuthHandler struct {
	authService  *services.AuthService
	refreshTTL   time.Duration
	secureCookie bool
}

// NewAuthHandler serves the /api/auth routes. secureCookie marks the refresh
// cookie Secure and should be set in release mode.
func NewAuthHandler(authService *services.AuthService, refreshTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		refreshTTL:   refreshTTL,
		secureCookie: secureCookie,
	}
}

// Register creates an account and starts a session
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sess, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, sess.RefreshToken)
	response.Created(c, gin.H{
		"user":         sess.User,
		"accessToken":  sess.AccessToken,
		"refreshToken": sess.RefreshToken,
	})
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sess, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, sess.RefreshToken)
	response.Success(c, gin.H{
		"user":        sess.User,
		"accessToken": sess.AccessToken,
	})
}

// Refresh rotates the refresh cookie and issues a new access token
// POST /api/auth/refresh-token
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(RefreshCookieName)
	if err != nil || token == "" {
		response.Error(c, response.NewUnauthorized("Refresh token not found").WithCode(response.CodeInvalidRefreshToken))
		return
	}

	sess, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		h.clearRefreshCookie(c)
		handleError(c, err)
		return
	}

	h.setRefreshCookie(c, sess.RefreshToken)
	response.Success(c, gin.H{
		"user":        sess.User,
		"accessToken": sess.AccessToken,
	})
}

// Logout revokes the refresh cookie's session. It always succeeds.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(RefreshCookieName); err == nil && token != "" {
		h.authService.Logout(c.Request.Context(), token)
	}
	h.clearRefreshCookie(c)
	response.SuccessMessage(c, "Logged out successfully", nil)
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.CurrentUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user})
}

// ChangePassword updates the caller's password and signs out every session.
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), &req); err != nil {
		handleError(c, err)
		return
	}

	h.clearRefreshCookie(c)
	response.SuccessMessage(c, "Password changed successfully", nil)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     RefreshCookiePath,
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
