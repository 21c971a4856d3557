package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/taskmanager/internal/services"
	"github.com/huangang/taskmanager/pkg/logger"
	"github.com/huangang/taskmanager/pkg/response"
)

var kindResponses = map[services.ErrorKind]struct {
	status int
	code   string
}{
	services.KindDuplicateEmail:      {http.StatusBadRequest, response.CodeDuplicateEmail},
	services.KindInvalidRole:         {http.StatusBadRequest, response.CodeInvalidRole},
	services.KindValidation:          {http.StatusBadRequest, response.CodeValidation},
	services.KindInvalidCredentials:  {http.StatusUnauthorized, response.CodeInvalidCredentials},
	services.KindInvalidRefreshToken: {http.StatusUnauthorized, response.CodeInvalidRefreshToken},
	services.KindRefreshTokenExpired: {http.StatusUnauthorized, response.CodeRefreshTokenExpired},
	services.KindTokenExpired:        {http.StatusUnauthorized, response.CodeTokenExpired},
	services.KindUnauthenticated:     {http.StatusUnauthorized, response.CodeUnauthenticated},
	services.KindForbidden:           {http.StatusForbidden, response.CodeForbidden},
	services.KindNotFound:            {http.StatusNotFound, response.CodeNotFound},
}

// toAppError maps a service error to its HTTP form. Errors without a kind
// become a generic 500.
func toAppError(err error) *response.AppError {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		if m, ok := kindResponses[svcErr.Kind]; ok {
			return &response.AppError{HTTPStatus: m.status, Code: m.status, ErrorCode: m.code, Message: svcErr.Message}
		}
	}
	return response.NewServerError("internal server error")
}

// handleError writes err to the client. Unclassified errors are logged here
// and never echoed.
func handleError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		_ = c.Error(err)
	}
	response.Error(c, appErr)
}
