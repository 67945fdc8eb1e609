package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docstack/docstack/internal/pkg/errcode"
	"github.com/docstack/docstack/internal/pkg/response"
	"github.com/docstack/docstack/internal/service"
)

type WorkflowHandler struct {
	workflow *service.WorkflowService
}

func NewWorkflowHandler(workflow *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow}
}

// signedRequest is the shared body of every workflow action: the caller
// re-enters their password as an electronic signature.
type signedRequest struct {
	Signature string `json:"signature" binding:"required"`
	Comments  string `json:"comments"`
	Reason    string `json:"reason"`
}

func (h *WorkflowHandler) bind(c *gin.Context) (*signedRequest, bool) {
	var req signedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return nil, false
	}
	return &req, true
}

func (h *WorkflowHandler) Submit(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	version, err := h.workflow.Submit(c.Request.Context(), c.Param("versionId"), getUser(c), req.Signature)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

func (h *WorkflowHandler) Approve(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	version, err := h.workflow.Approve(c.Request.Context(), c.Param("versionId"), getUser(c), req.Signature, req.Comments)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

func (h *WorkflowHandler) Reject(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	version, err := h.workflow.Reject(c.Request.Context(), c.Param("versionId"), getUser(c), req.Signature, req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

func (h *WorkflowHandler) Publish(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	version, err := h.workflow.Publish(c.Request.Context(), c.Param("versionId"), getUser(c), req.Signature)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

func (h *WorkflowHandler) Archive(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	version, err := h.workflow.Archive(c.Request.Context(), c.Param("versionId"), getUser(c), req.Signature)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

func (h *WorkflowHandler) MarkViewed(c *gin.Context) {
	if err := h.workflow.MarkViewed(c.Request.Context(), c.Param("versionId"), getUser(c)); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}
