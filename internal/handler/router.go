package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docstack/docstack/internal/middleware"
)

type RouterDeps struct {
	Auth        *AuthHandler
	Documents   *DocumentHandler
	Versions    *VersionHandler
	Locks       *LockHandler
	Workflow    *WorkflowHandler
	Audit       *AuditHandler
	Attachments *AttachmentHandler
	JWTSecret   []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/login", middleware.RateLimit(time.Second), deps.Auth.Login)
	api.POST("/auth/register", deps.Auth.Register)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.GET("/auth/me", deps.Auth.Me)

	authGroup.POST("/documents", deps.Documents.Create)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.PUT("/documents/:id", deps.Documents.Update)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)
	authGroup.GET("/documents/:id/versions", deps.Documents.History)
	authGroup.GET("/documents/:id/published", deps.Documents.Published)

	authGroup.GET("/versions/:versionId", deps.Versions.Get)
	authGroup.PUT("/versions/:versionId/content", deps.Versions.Save)
	authGroup.PUT("/versions/:versionId/change-summary", deps.Versions.UpdateChangeSummary)
	authGroup.POST("/versions/:versionId/new-version", deps.Versions.Branch)

	authGroup.POST("/versions/:versionId/lock", deps.Locks.Acquire)
	authGroup.PUT("/versions/:versionId/lock/heartbeat", deps.Locks.Heartbeat)
	authGroup.DELETE("/versions/:versionId/lock", deps.Locks.Release)
	authGroup.GET("/versions/:versionId/lock", deps.Locks.Status)

	authGroup.POST("/versions/:versionId/view", deps.Workflow.MarkViewed)
	authGroup.POST("/versions/:versionId/submit", deps.Workflow.Submit)
	authGroup.POST("/versions/:versionId/approve", deps.Workflow.Approve)
	authGroup.POST("/versions/:versionId/reject", deps.Workflow.Reject)
	authGroup.POST("/versions/:versionId/publish", deps.Workflow.Publish)
	authGroup.POST("/versions/:versionId/archive", deps.Workflow.Archive)

	authGroup.POST("/versions/:versionId/attachments", deps.Attachments.Upload)
	authGroup.GET("/versions/:versionId/attachments", deps.Attachments.List)
	authGroup.GET("/attachments/:attachmentId", deps.Attachments.Download)

	authGroup.GET("/audit", deps.Audit.List)
}
