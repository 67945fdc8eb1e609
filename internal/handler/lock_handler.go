package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docstack/docstack/internal/pkg/errcode"
	"github.com/docstack/docstack/internal/pkg/response"
	"github.com/docstack/docstack/internal/service"
)

type LockHandler struct {
	locks *service.LockService
}

func NewLockHandler(locks *service.LockService) *LockHandler {
	return &LockHandler{locks: locks}
}

type acquireLockRequest struct {
	SessionID  string `json:"session_id"`
	TTLMinutes int    `json:"ttl_minutes"`
}

type lockTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type heartbeatRequest struct {
	Token string `json:"token" binding:"required"`
	// ExtendMinutes picks the new lease length; zero means the default TTL.
	ExtendMinutes int `json:"extend_minutes"`
}

// Acquire claims the edit lock on a draft version. The response carries the
// bearer token exactly once; it is never readable again.
func (h *LockHandler) Acquire(c *gin.Context) {
	var req acquireLockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
			return
		}
	}
	lock, err := h.locks.Acquire(c.Request.Context(), c.Param("versionId"), getUserID(c), req.SessionID, time.Duration(req.TTLMinutes)*time.Minute)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{
		"lock":  lock,
		"token": lock.Token,
	})
}

func (h *LockHandler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return
	}
	expiresAt, err := h.locks.Heartbeat(c.Request.Context(), c.Param("versionId"), req.Token, time.Duration(req.ExtendMinutes)*time.Minute)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"expires_at": expiresAt})
}

func (h *LockHandler) Release(c *gin.Context) {
	var req lockTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return
	}
	if err := h.locks.Release(c.Request.Context(), c.Param("versionId"), req.Token); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *LockHandler) Status(c *gin.Context) {
	status, err := h.locks.Status(c.Request.Context(), c.Param("versionId"), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}
