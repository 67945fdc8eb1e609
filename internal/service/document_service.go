package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
	"github.com/docstack/docstack/internal/pkg/hashutil"
	"github.com/docstack/docstack/internal/pkg/timeutil"
	"github.com/docstack/docstack/internal/repo"
)

const documentNumberPrefix = "DOC"

// DocumentService owns document records and their initial drafts. Creating a
// document always creates a v0.1 draft alongside it; documents are never
// hard-deleted, only state-flagged.
type DocumentService struct {
	documents DocumentStore
	versions  VersionStore
	audit     *AuditService
	now       func() int64
}

func NewDocumentService(documents DocumentStore, versions VersionStore, audit *AuditService) *DocumentService {
	return &DocumentService{
		documents: documents,
		versions:  versions,
		audit:     audit,
		now:       timeutil.NowUnix,
	}
}

type CreateDocumentInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Department  string `json:"department" binding:"required"`
	ContentHTML string `json:"content_html"`
}

type UpdateDocumentInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Department  string `json:"department"`
}

// Create registers a document and its initial v0.1 draft. The document number
// is PREFIX-DEPT-YYYYMMDD-NNNN with NNNN sequential within prefix+dept+day.
func (s *DocumentService) Create(ctx context.Context, in *CreateDocumentInput, user *model.User) (*model.Document, *model.DocumentVersion, error) {
	if !user.HasRole(model.RoleAuthor) && !user.IsAdmin() {
		return nil, nil, appErr.ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Department) == "" {
		return nil, nil, appErr.ErrValidation
	}
	now := s.now()
	number, err := s.nextNumber(ctx, in.Department, now)
	if err != nil {
		return nil, nil, err
	}

	doc := &model.Document{
		ID:          newID(),
		Number:      number,
		Title:       in.Title,
		Description: in.Description,
		Department:  in.Department,
		OwnerID:     user.ID,
		CreatedByID: user.ID,
		Status:      string(model.StatusDraft),
		State:       repo.DocumentStateNormal,
		Ctime:       now,
		Mtime:       now,
	}
	version := &model.DocumentVersion{
		ID:          newID(),
		DocumentID:  doc.ID,
		Major:       0,
		Minor:       1,
		ContentHTML: in.ContentHTML,
		ContentHash: hashutil.ContentHash(in.ContentHTML),
		Status:      model.StatusDraft,
		CreatedByID: user.ID,
		Ctime:       now,
		Mtime:       now,
	}
	doc.CurrentVersionID = version.ID

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, nil, err
	}
	if err := s.versions.Create(ctx, version); err != nil {
		return nil, nil, err
	}
	s.audit.Log(ctx, user, model.AuditDocumentCreated, "Document", doc.ID,
		"created document "+doc.Number, map[string]interface{}{"title": doc.Title})
	return doc, version, nil
}

// nextNumber allocates the next sequential document number for the
// department's daily series. Concurrent creators can race to the same number;
// the UNIQUE constraint on documents.number rejects the loser and the handler
// surfaces that as a retryable conflict.
func (s *DocumentService) nextNumber(ctx context.Context, department string, now int64) (string, error) {
	day := time.Unix(now, 0).UTC().Format("20060102")
	prefix := fmt.Sprintf("%s-%s-%s-", documentNumberPrefix, strings.ToUpper(department), day)
	last, err := s.documents.MaxNumber(ctx, prefix)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return prefix + "0001", nil
		}
		return "", err
	}
	seq, err := strconv.Atoi(last[strings.LastIndex(last, "-")+1:])
	if err != nil {
		return "", fmt.Errorf("malformed document number %q: %w", last, err)
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	return s.documents.GetByID(ctx, id)
}

func (s *DocumentService) List(ctx context.Context, department, status string, limit, offset uint) ([]model.Document, error) {
	if limit == 0 || limit > 100 {
		limit = 50
	}
	return s.documents.List(ctx, department, status, limit, offset)
}

// UpdateMeta changes title/description/department. Only the owner or an admin
// may edit metadata; the content workflow is untouched.
func (s *DocumentService) UpdateMeta(ctx context.Context, id string, in *UpdateDocumentInput, user *model.User) (*model.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != user.ID && !user.IsAdmin() {
		return nil, appErr.ErrForbidden
	}
	if in.Title != "" {
		doc.Title = in.Title
	}
	if in.Description != "" {
		doc.Description = in.Description
	}
	if in.Department != "" {
		doc.Department = in.Department
	}
	doc.Mtime = s.now()
	if err := s.documents.UpdateMeta(ctx, doc); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, user, model.AuditDocumentUpdated, "Document", doc.ID,
		"updated document metadata", nil)
	return doc, nil
}

// Delete soft-deletes a document. Published documents must be archived first.
func (s *DocumentService) Delete(ctx context.Context, id string, user *model.User) error {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != user.ID && !user.IsAdmin() {
		return appErr.ErrForbidden
	}
	if doc.Status == string(model.StatusPublished) {
		return appErr.ErrInvalidState
	}
	if err := s.documents.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.audit.Log(ctx, user, model.AuditDocumentDeleted, "Document", doc.ID,
		"deleted document "+doc.Number, nil)
	return nil
}

// UpdateChangeSummary sets the human-readable change summary on a draft.
func (s *DocumentService) UpdateChangeSummary(ctx context.Context, versionID, summary string, user *model.User) error {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return err
	}
	if version.CreatedByID != user.ID && !user.IsAdmin() {
		return appErr.ErrForbidden
	}
	return s.versions.UpdateChangeSummary(ctx, versionID, summary, s.now())
}
