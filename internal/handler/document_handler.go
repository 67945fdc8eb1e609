package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docstack/docstack/internal/pkg/errcode"
	"github.com/docstack/docstack/internal/pkg/response"
	"github.com/docstack/docstack/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
	lineage   *service.LineageService
}

func NewDocumentHandler(documents *service.DocumentService, lineage *service.LineageService) *DocumentHandler {
	return &DocumentHandler{documents: documents, lineage: lineage}
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req service.CreateDocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return
	}
	doc, version, err := h.documents.Create(c.Request.Context(), &req, getUser(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{"document": doc, "version": version})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseUint(c.Query("limit"), 10, 32)
	offset, _ := strconv.ParseUint(c.Query("offset"), 10, 32)
	docs, err := h.documents.List(c.Request.Context(), c.Query("department"), c.Query("status"), uint(limit), uint(offset))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	var req service.UpdateDocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return
	}
	doc, err := h.documents.UpdateMeta(c.Request.Context(), c.Param("id"), &req, getUser(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id"), getUser(c)); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// History lists the document's full version lineage, newest first.
func (h *DocumentHandler) History(c *gin.Context) {
	versions, err := h.lineage.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, versions)
}

// Published resolves the currently effective version of the document.
func (h *DocumentHandler) Published(c *gin.Context) {
	version, err := h.lineage.Published(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}
