package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docstack/docstack/internal/model"
	"github.com/docstack/docstack/internal/pkg/errcode"
	"github.com/docstack/docstack/internal/pkg/response"
	"github.com/docstack/docstack/internal/service"
)

type VersionHandler struct {
	versions service.VersionStore
	content  *service.ContentService
	lineage  *service.LineageService
	docs     *service.DocumentService
}

func NewVersionHandler(versions service.VersionStore, content *service.ContentService, lineage *service.LineageService, docs *service.DocumentService) *VersionHandler {
	return &VersionHandler{versions: versions, content: content, lineage: lineage, docs: docs}
}

func (h *VersionHandler) Get(c *gin.Context) {
	version, err := h.versions.GetByID(c.Request.Context(), c.Param("versionId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

type saveContentRequest struct {
	ContentHTML string `json:"content_html"`
	BaseHash    string `json:"base_hash"`
	LockToken   string `json:"lock_token" binding:"required"`
	IsAutosave  bool   `json:"is_autosave"`
}

// Save writes draft content under the caller's edit lock. A stale base_hash
// is rejected with the server's current content in the error details; an
// empty base_hash force-saves.
func (h *VersionHandler) Save(c *gin.Context) {
	var req saveContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return
	}
	result, err := h.content.Save(c.Request.Context(), c.Param("versionId"), getUser(c), service.SaveInput{
		ContentHTML: req.ContentHTML,
		BaseHash:    req.BaseHash,
		LockToken:   req.LockToken,
		IsAutosave:  req.IsAutosave,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

type createVersionRequest struct {
	ChangeType   string `json:"change_type" binding:"required"`
	ChangeReason string `json:"change_reason" binding:"required"`
}

// Branch creates a new draft version off this (published) version.
func (h *VersionHandler) Branch(c *gin.Context) {
	var req createVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return
	}
	draft, err := h.lineage.CreateNewVersion(c.Request.Context(), &service.CreateVersionInput{
		SourceVersionID: c.Param("versionId"),
		ChangeType:      model.ChangeType(req.ChangeType),
		ChangeReason:    req.ChangeReason,
	}, getUser(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, draft)
}

type changeSummaryRequest struct {
	ChangeSummary string `json:"change_summary" binding:"required"`
}

func (h *VersionHandler) UpdateChangeSummary(c *gin.Context) {
	var req changeSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return
	}
	if err := h.docs.UpdateChangeSummary(c.Request.Context(), c.Param("versionId"), req.ChangeSummary, getUser(c)); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}
