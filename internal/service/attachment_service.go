package service

import (
	"context"
	"io"

	"github.com/docstack/docstack/internal/filestore"
	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
	"github.com/docstack/docstack/internal/pkg/timeutil"
)

const maxAttachmentBytes = 50 << 20

// AttachmentService stores supporting files alongside a draft version. Once
// the version leaves DRAFT its attachment set is frozen with the content.
type AttachmentService struct {
	attachments AttachmentStore
	versions    VersionStore
	store       filestore.Store
	audit       *AuditService
	now         func() int64
}

func NewAttachmentService(attachments AttachmentStore, versions VersionStore, store filestore.Store, audit *AuditService) *AttachmentService {
	return &AttachmentService{
		attachments: attachments,
		versions:    versions,
		store:       store,
		audit:       audit,
		now:         timeutil.NowUnix,
	}
}

type UploadInput struct {
	VersionID   string
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadSeekCloser
}

func (s *AttachmentService) Upload(ctx context.Context, in *UploadInput, user *model.User) (*model.Attachment, error) {
	if in.FileName == "" || in.Size <= 0 || in.Size > maxAttachmentBytes {
		return nil, appErr.ErrValidation
	}
	version, err := s.versions.GetByID(ctx, in.VersionID)
	if err != nil {
		return nil, err
	}
	if version.Status != model.StatusDraft {
		return nil, appErr.ErrInvalidState
	}
	att := &model.Attachment{
		ID:           newID(),
		VersionID:    in.VersionID,
		FileName:     in.FileName,
		ContentType:  in.ContentType,
		SizeBytes:    in.Size,
		StoreKey:     newID(),
		UploadedByID: user.ID,
		Ctime:        s.now(),
	}
	if err := s.store.Save(ctx, att.StoreKey, in.Body, in.Size); err != nil {
		return nil, err
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, user, model.AuditAttachmentAdded, "Attachment", att.ID,
		"attached "+att.FileName+" to "+version.VersionString(), nil)
	return att, nil
}

func (s *AttachmentService) List(ctx context.Context, versionID string) ([]model.Attachment, error) {
	if _, err := s.versions.GetByID(ctx, versionID); err != nil {
		return nil, err
	}
	return s.attachments.ListByVersion(ctx, versionID)
}

// Open returns the attachment metadata and a reader over its payload. The
// caller owns closing the reader.
func (s *AttachmentService) Open(ctx context.Context, id string) (*model.Attachment, io.ReadCloser, error) {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.store.Open(ctx, att.StoreKey)
	if err != nil {
		return nil, nil, err
	}
	return att, body, nil
}
