package model

const (
	AuditLockAcquired     = "LOCK_ACQUIRED"
	AuditLockReleased     = "LOCK_RELEASED"
	AuditVersionSaved     = "VERSION_SAVED"
	AuditVersionAutosaved = "VERSION_AUTOSAVED"
	AuditVersionCreated   = "VERSION_CREATED"
	AuditVersionSubmitted = "VERSION_SUBMITTED"
	AuditVersionApproved  = "VERSION_APPROVED"
	AuditVersionRejected  = "VERSION_REJECTED"
	AuditVersionPublished = "VERSION_PUBLISHED"
	AuditVersionArchived  = "VERSION_ARCHIVED"
	AuditDocumentCreated  = "DOCUMENT_CREATED"
	AuditDocumentUpdated  = "DOCUMENT_UPDATED"
	AuditDocumentDeleted  = "DOCUMENT_DELETED"
	AuditAttachmentAdded  = "ATTACHMENT_ADDED"
)

type AuditLog struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Action      string `json:"action"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
	Ctime       int64  `json:"ctime"`
}
