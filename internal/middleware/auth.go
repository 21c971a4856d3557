package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/models"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/pkg/logger"
	"github.com/huangang/taskmanager/pkg/response"
)

const (
	ContextUser   = "user"
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Authenticator resolves a bearer access token to its user.
type Authenticator interface {
	AuthenticateAccessToken(ctx context.Context, accessToken string) (*models.User, error)
}

// Authenticate requires "Authorization: Bearer <token>" and attaches the
// token's user to the context.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, response.NewUnauthorized("Authentication required"))
			return
		}

		user, err := auth.AuthenticateAccessToken(c.Request.Context(), token)
		if err != nil {
			switch services.KindOf(err) {
			case services.KindTokenExpired:
				response.Abort(c, response.NewUnauthorized("Token expired").WithCode(response.CodeTokenExpired))
			case services.KindUnauthenticated:
				response.Abort(c, response.NewUnauthorized("Invalid token").WithCode(response.CodeInvalidToken))
			default:
				logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("access token check failed")
				response.Abort(c, response.NewServerError("internal server error"))
			}
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)
		c.Set(ContextRole, user.RoleName())
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireRoles admits users whose role name is one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Abort(c, response.NewUnauthorized("Authentication required"))
			return
		}
		if _, ok := allowed[user.RoleName()]; !ok {
			response.Abort(c, response.NewForbidden("You do not have permission to access this resource"))
			return
		}
		c.Next()
	}
}

// RequireAdmin admits only users holding the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Abort(c, response.NewUnauthorized("Authentication required"))
			return
		}
		if user.RoleID != models.RoleAdminID {
			response.Abort(c, response.NewForbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, exists := c.Get(ContextUser); exists {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// GetRole gets the current user role from context
func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}
