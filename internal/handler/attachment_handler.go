package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docstack/docstack/internal/pkg/errcode"
	"github.com/docstack/docstack/internal/pkg/response"
	"github.com/docstack/docstack/internal/service"
)

type AttachmentHandler struct {
	attachments *service.AttachmentService
}

func NewAttachmentHandler(attachments *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

func (h *AttachmentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "failed to open file")
		return
	}
	defer opened.Close()

	contentType, err := sniffContentType(opened)
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "failed to read file")
		return
	}

	att, err := h.attachments.Upload(c.Request.Context(), &service.UploadInput{
		VersionID:   c.Param("versionId"),
		FileName:    file.Filename,
		ContentType: contentType,
		Size:        file.Size,
		Body:        opened,
	}, getUser(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, att)
}

func (h *AttachmentHandler) List(c *gin.Context) {
	attachments, err := h.attachments.List(c.Request.Context(), c.Param("versionId"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, attachments)
}

func (h *AttachmentHandler) Download(c *gin.Context) {
	att, body, err := h.attachments.Open(c.Request.Context(), c.Param("attachmentId"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer body.Close()
	c.Header("Content-Type", att.ContentType)
	c.Header("Content-Disposition", `attachment; filename="`+att.FileName+`"`)
	_, _ = io.Copy(c.Writer, body)
}

func sniffContentType(file io.ReadSeekCloser) (string, error) {
	buf := make([]byte, 512)
	read, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	contentType := http.DetectContentType(buf[:read])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return contentType, nil
}
