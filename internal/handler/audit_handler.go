package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docstack/docstack/internal/pkg/response"
	"github.com/docstack/docstack/internal/service"
)

type AuditHandler struct {
	audit *service.AuditService
}

func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseUint(c.Query("limit"), 10, 32)
	offset, _ := strconv.ParseUint(c.Query("offset"), 10, 32)
	entries, err := h.audit.List(c.Request.Context(), getUser(c), c.Query("entity_type"), c.Query("entity_id"), uint(limit), uint(offset))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, entries)
}
