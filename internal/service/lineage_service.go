package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
	"github.com/docstack/docstack/internal/pkg/timeutil"
)

const (
	changeReasonMinLen = 10
	changeReasonMaxLen = 1000
)

// LineageService branches new versions off published ones. A branch starts as
// a fresh DRAFT carrying a copy of the source content, a parent pointer, the
// declared change type and a mandatory change reason.
type LineageService struct {
	versions  VersionStore
	documents DocumentStore
	audit     *AuditService
	now       func() int64
}

func NewLineageService(versions VersionStore, documents DocumentStore, audit *AuditService) *LineageService {
	return &LineageService{
		versions:  versions,
		documents: documents,
		audit:     audit,
		now:       timeutil.NowUnix,
	}
}

type CreateVersionInput struct {
	SourceVersionID string           `json:"-"`
	ChangeType      model.ChangeType `json:"change_type"`
	ChangeReason    string           `json:"change_reason"`
}

// CreateNewVersion branches a draft off a published version. Only PUBLISHED
// versions may be branched, and the change reason must carry real content
// (10..1000 runes). The new draft becomes the document's working version.
// Branching the same source again yields another independent draft; two
// drafts may carry the same prospective number, and the collision is only
// settled when one of them publishes.
func (s *LineageService) CreateNewVersion(ctx context.Context, in *CreateVersionInput, user *model.User) (*model.DocumentVersion, error) {
	if !user.HasRole(model.RoleAuthor) && !user.IsAdmin() {
		return nil, appErr.ErrForbidden
	}
	if in.ChangeType != model.ChangeMinor && in.ChangeType != model.ChangeMajor {
		return nil, appErr.ErrValidation
	}
	reason := strings.TrimSpace(in.ChangeReason)
	if n := utf8.RuneCountInString(reason); n < changeReasonMinLen || n > changeReasonMaxLen {
		return nil, appErr.ErrValidation
	}
	source, err := s.versions.GetByID(ctx, in.SourceVersionID)
	if err != nil {
		return nil, err
	}
	if source.Status != model.StatusPublished {
		return nil, appErr.ErrValidation
	}

	now := s.now()
	major, minor := source.NextNumber(in.ChangeType)
	draft := &model.DocumentVersion{
		ID:              newID(),
		DocumentID:      source.DocumentID,
		Major:           major,
		Minor:           minor,
		ParentVersionID: source.ID,
		ChangeType:      in.ChangeType,
		ChangeReason:    reason,
		ContentHTML:     source.ContentHTML,
		ContentHash:     source.ContentHash,
		Status:          model.StatusDraft,
		CreatedByID:     user.ID,
		Ctime:           now,
		Mtime:           now,
	}
	if err := s.versions.Create(ctx, draft); err != nil {
		return nil, err
	}
	if err := s.documents.SetCurrentVersion(ctx, source.DocumentID, draft.ID, model.StatusDraft, now); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, user, model.AuditVersionCreated, "DocumentVersion", draft.ID,
		"created "+draft.VersionString()+" from "+source.VersionString(),
		map[string]interface{}{"change_type": string(in.ChangeType), "parent_version_id": source.ID})
	return draft, nil
}

// History lists a document's versions newest-first.
func (s *LineageService) History(ctx context.Context, docID string) ([]model.VersionSummary, error) {
	if _, err := s.documents.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.versions.ListByDocument(ctx, docID)
}

// Published resolves the currently effective version of a document, if any.
func (s *LineageService) Published(ctx context.Context, docID string) (*model.DocumentVersion, error) {
	return s.versions.GetPublished(ctx, docID)
}
