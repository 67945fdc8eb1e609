package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docstack/docstack/internal/model"
	"github.com/docstack/docstack/internal/pkg/errcode"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
	"github.com/docstack/docstack/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get("user_id")
	userID, _ := value.(string)
	return userID
}

// getUser rebuilds the acting user from the JWT claims the auth middleware
// stored on the context. The password hash is absent; services that need it
// (signature verification) reload the row.
func getUser(c *gin.Context) *model.User {
	userID := getUserID(c)
	if userID == "" {
		return nil
	}
	username, _ := c.Get("username")
	name, _ := username.(string)
	rolesValue, _ := c.Get("roles")
	roles, _ := rolesValue.([]string)
	return &model.User{ID: userID, Username: name, Roles: roles}
}

// handleError maps service errors onto the API's status vocabulary. Lock and
// save conflicts carry structured details so clients can render the holder or
// offer a refresh/overwrite choice.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Debug("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err))

	var lockErr *appErr.AlreadyLockedError
	if errors.As(err, &lockErr) {
		response.ErrorDetails(c, http.StatusLocked, errcode.ErrAlreadyLocked, "version is locked by another user", gin.H{
			"holder_id":   lockErr.HolderID,
			"holder_name": lockErr.HolderName,
			"expires_at":  lockErr.ExpiresAt,
		})
		return
	}
	var saveErr *appErr.SaveConflictError
	if errors.As(err, &saveErr) {
		response.ErrorDetails(c, http.StatusConflict, errcode.ErrConflict, "content was modified concurrently", gin.H{
			"server_hash":    saveErr.ServerHash,
			"server_content": saveErr.ServerContent,
		})
		return
	}

	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrValidation):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, errcode.ErrInvalidTransition, "invalid workflow transition")
	case errors.Is(err, appErr.ErrInvalidState):
		response.Error(c, http.StatusConflict, errcode.ErrInvalidState, "operation not allowed in current state")
	case errors.Is(err, appErr.ErrNotViewed):
		response.Error(c, http.StatusPreconditionFailed, errcode.ErrNotViewed, "version content must be viewed first")
	case errors.Is(err, appErr.ErrLockExpired):
		response.Error(c, http.StatusGone, errcode.ErrLockExpired, "edit lock expired")
	case errors.Is(err, appErr.ErrNotLocked):
		response.Error(c, http.StatusConflict, errcode.ErrNotLocked, "no active edit lock held")
	case errors.Is(err, appErr.ErrTokenMismatch):
		response.Error(c, http.StatusConflict, errcode.ErrTokenMismatch, "lock token mismatch")
	case errors.Is(err, appErr.ErrAlreadyLocked):
		response.Error(c, http.StatusLocked, errcode.ErrAlreadyLocked, "version is locked")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, "too many requests")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
