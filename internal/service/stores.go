package service

import (
	"context"

	"github.com/docstack/docstack/internal/model"
)

// Store interfaces consumed by the services. internal/repo provides the
// postgres implementations; tests substitute in-memory ones.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	List(ctx context.Context, department, status string, limit, offset uint) ([]model.Document, error)
	UpdateMeta(ctx context.Context, doc *model.Document) error
	SetCurrentVersion(ctx context.Context, docID, versionID string, status model.VersionStatus, now int64) error
	SetStatusIfCurrent(ctx context.Context, docID, versionID string, status model.VersionStatus, now int64) error
	SoftDelete(ctx context.Context, docID string, now int64) error
	MaxNumber(ctx context.Context, prefix string) (string, error)
}

type VersionStore interface {
	Create(ctx context.Context, v *model.DocumentVersion) error
	GetByID(ctx context.Context, id string) (*model.DocumentVersion, error)
	ListByDocument(ctx context.Context, docID string) ([]model.VersionSummary, error)
	ReplaceContent(ctx context.Context, id, content, hash, baseHash string, now int64) (int, bool, error)
	Transition(ctx context.Context, id string, from, to model.VersionStatus, set map[string]interface{}, now int64) (bool, error)
	Publish(ctx context.Context, docID, versionID, userID string, now int64) (bool, error)
	GetPublished(ctx context.Context, docID string) (*model.DocumentVersion, error)
	UpdateChangeSummary(ctx context.Context, id, summary string, now int64) error
}

type LockStore interface {
	Insert(ctx context.Context, lock *model.EditLock) error
	GetByVersion(ctx context.Context, versionID string) (*model.EditLock, error)
	Refresh(ctx context.Context, versionID, currentToken, newToken string, expiresAt, heartbeatAt int64) (bool, error)
	Delete(ctx context.Context, versionID, token string) error
	DeleteExpired(ctx context.Context, before int64) (int64, error)
}

type ViewStore interface {
	Upsert(ctx context.Context, view *model.DocumentView) error
	Get(ctx context.Context, versionID, userID string) (*model.DocumentView, error)
}

type AuditStore interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, entityType, entityID string, limit, offset uint) ([]model.AuditLog, error)
	DeleteOlderThan(ctx context.Context, before int64) (int64, error)
}

type AttachmentStore interface {
	Create(ctx context.Context, att *model.Attachment) error
	GetByID(ctx context.Context, id string) (*model.Attachment, error)
	ListByVersion(ctx context.Context, versionID string) ([]model.Attachment, error)
}
