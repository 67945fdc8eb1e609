package service

import (
	"context"
	"errors"
	"strings"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
	"github.com/docstack/docstack/internal/pkg/password"
	"github.com/docstack/docstack/internal/pkg/timeutil"
)

// WorkflowService drives a version through the regulated lifecycle:
//
//	DRAFT -> UNDER_REVIEW -> (PENDING_APPROVAL ->) APPROVED -> PUBLISHED -> ARCHIVED
//
// with reject looping UNDER_REVIEW/PENDING_APPROVAL back to DRAFT and publish
// obsoleting the previously published sibling. Every action is an auditable,
// signed operation: the caller re-authenticates with their password.
type WorkflowService struct {
	versions  VersionStore
	documents DocumentStore
	locks     LockStore
	views     ViewStore
	users     UserStore
	audit     *AuditService
	// approvalStages is 1 or 2; with 2, review approval parks the version in
	// PENDING_APPROVAL for a second sign-off.
	approvalStages int
	now            func() int64
}

func NewWorkflowService(versions VersionStore, documents DocumentStore, locks LockStore, views ViewStore, users UserStore, audit *AuditService, approvalStages int) *WorkflowService {
	if approvalStages != 1 {
		approvalStages = 2
	}
	return &WorkflowService{
		versions:       versions,
		documents:      documents,
		locks:          locks,
		views:          views,
		users:          users,
		audit:          audit,
		approvalStages: approvalStages,
		now:            timeutil.NowUnix,
	}
}

// verifySignature re-authenticates the acting user. Regulated transitions are
// signature-gated; a wrong password fails before any state is touched.
func (s *WorkflowService) verifySignature(ctx context.Context, user *model.User, plain string) error {
	stored, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return appErr.ErrUnauthorized
	}
	if err := password.Compare(stored.PasswordHash, plain); err != nil {
		return appErr.ErrUnauthorized
	}
	return nil
}

func (s *WorkflowService) requireViewed(ctx context.Context, versionID, userID string) error {
	if _, err := s.views.Get(ctx, versionID, userID); err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return appErr.ErrNotViewed
		}
		return err
	}
	return nil
}

// MarkViewed records that the caller opened this version's content. The first
// view wins; repeat views are no-ops.
func (s *WorkflowService) MarkViewed(ctx context.Context, versionID string, user *model.User) error {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return err
	}
	return s.views.Upsert(ctx, &model.DocumentView{
		ID:         newID(),
		DocumentID: version.DocumentID,
		VersionID:  versionID,
		UserID:     user.ID,
		ViewedAt:   s.now(),
	})
}

// Submit moves a draft into review. The author needs no lock, but an active
// lock held by someone else blocks submission.
func (s *WorkflowService) Submit(ctx context.Context, versionID string, user *model.User, signature string) (*model.DocumentVersion, error) {
	if err := s.verifySignature(ctx, user, signature); err != nil {
		return nil, err
	}
	if !user.HasRole(model.RoleAuthor) && !user.IsAdmin() {
		return nil, appErr.ErrForbidden
	}
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status != model.StatusDraft {
		return nil, appErr.ErrInvalidTransition
	}
	now := s.now()
	if lock, err := s.locks.GetByVersion(ctx, versionID); err == nil {
		if !lock.IsExpired(now) && lock.UserID != user.ID {
			return nil, &appErr.AlreadyLockedError{HolderID: lock.UserID, ExpiresAt: lock.ExpiresAt}
		}
	} else if !errors.Is(err, appErr.ErrNotFound) {
		return nil, err
	}

	ok, err := s.versions.Transition(ctx, versionID, model.StatusDraft, model.StatusUnderReview, map[string]interface{}{
		"submitted_at":    now,
		"submitted_by_id": user.ID,
	}, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.ErrInvalidTransition
	}
	if err := s.documents.SetStatusIfCurrent(ctx, version.DocumentID, versionID, model.StatusUnderReview, now); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, user, model.AuditVersionSubmitted, "DocumentVersion", versionID,
		"submitted "+version.VersionString()+" for review (signed)", nil)
	return s.versions.GetByID(ctx, versionID)
}

// Approve advances a version one approval stage. Under two-stage config a
// reviewer's approval parks the version in PENDING_APPROVAL and an approver's
// second sign-off reaches APPROVED; single-stage goes straight to APPROVED.
func (s *WorkflowService) Approve(ctx context.Context, versionID string, user *model.User, signature, comments string) (*model.DocumentVersion, error) {
	if err := s.verifySignature(ctx, user, signature); err != nil {
		return nil, err
	}
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireViewed(ctx, versionID, user.ID); err != nil {
		return nil, err
	}
	now := s.now()

	var from, to model.VersionStatus
	set := map[string]interface{}{}
	switch version.Status {
	case model.StatusUnderReview:
		if s.approvalStages == 2 {
			if !user.HasRole(model.RoleReviewer) && !user.IsAdmin() {
				return nil, appErr.ErrForbidden
			}
			from, to = model.StatusUnderReview, model.StatusPendingApproval
			set["reviewed_at"] = now
			set["reviewed_by_id"] = user.ID
		} else {
			if !user.HasRole(model.RoleReviewer) && !user.HasRole(model.RoleApprover) && !user.IsAdmin() {
				return nil, appErr.ErrForbidden
			}
			from, to = model.StatusUnderReview, model.StatusApproved
			set["reviewed_at"] = now
			set["reviewed_by_id"] = user.ID
			set["approved_at"] = now
			set["approved_by_id"] = user.ID
			set["approval_comments"] = comments
		}
	case model.StatusPendingApproval:
		if s.approvalStages != 2 {
			return nil, appErr.ErrInvalidTransition
		}
		if !user.HasRole(model.RoleApprover) && !user.IsAdmin() {
			return nil, appErr.ErrForbidden
		}
		from, to = model.StatusPendingApproval, model.StatusApproved
		set["approved_at"] = now
		set["approved_by_id"] = user.ID
		set["approval_comments"] = comments
	default:
		return nil, appErr.ErrInvalidTransition
	}

	ok, err := s.versions.Transition(ctx, versionID, from, to, set, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.ErrInvalidTransition
	}
	if err := s.documents.SetStatusIfCurrent(ctx, version.DocumentID, versionID, to, now); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, user, model.AuditVersionApproved, "DocumentVersion", versionID,
		"approved "+version.VersionString()+" (signed)",
		map[string]interface{}{"from": string(from), "to": string(to), "comments": comments})
	return s.versions.GetByID(ctx, versionID)
}

// Reject sends a version under review back to draft. The rejection reason is
// mandatory; this is the only backward edge in the workflow.
func (s *WorkflowService) Reject(ctx context.Context, versionID string, user *model.User, signature, reason string) (*model.DocumentVersion, error) {
	if err := s.verifySignature(ctx, user, signature); err != nil {
		return nil, err
	}
	if !user.HasRole(model.RoleReviewer) && !user.HasRole(model.RoleApprover) && !user.IsAdmin() {
		return nil, appErr.ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return nil, appErr.ErrValidation
	}
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireViewed(ctx, versionID, user.ID); err != nil {
		return nil, err
	}
	if version.Status != model.StatusUnderReview && version.Status != model.StatusPendingApproval {
		return nil, appErr.ErrInvalidTransition
	}
	now := s.now()
	ok, err := s.versions.Transition(ctx, versionID, version.Status, model.StatusDraft, map[string]interface{}{
		"rejected_at":      now,
		"rejected_by_id":   user.ID,
		"rejection_reason": reason,
	}, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.ErrInvalidTransition
	}
	if err := s.documents.SetStatusIfCurrent(ctx, version.DocumentID, versionID, model.StatusDraft, now); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, user, model.AuditVersionRejected, "DocumentVersion", versionID,
		"rejected "+version.VersionString()+" back to draft (signed)",
		map[string]interface{}{"previous_status": string(version.Status), "reason": reason})
	return s.versions.GetByID(ctx, versionID)
}

// Publish makes an approved version effective. Any other published version of
// the same document is obsoleted in the same transaction, so at no instant
// are two versions simultaneously effective.
func (s *WorkflowService) Publish(ctx context.Context, versionID string, user *model.User, signature string) (*model.DocumentVersion, error) {
	if err := s.verifySignature(ctx, user, signature); err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, appErr.ErrForbidden
	}
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireViewed(ctx, versionID, user.ID); err != nil {
		return nil, err
	}
	if version.Status != model.StatusApproved {
		return nil, appErr.ErrInvalidTransition
	}
	now := s.now()
	ok, err := s.versions.Publish(ctx, version.DocumentID, versionID, user.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.ErrInvalidTransition
	}
	s.audit.Log(ctx, user, model.AuditVersionPublished, "DocumentVersion", versionID,
		"published "+version.VersionString()+" (signed)", nil)
	return s.versions.GetByID(ctx, versionID)
}

// Archive retires a published version.
func (s *WorkflowService) Archive(ctx context.Context, versionID string, user *model.User, signature string) (*model.DocumentVersion, error) {
	if err := s.verifySignature(ctx, user, signature); err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, appErr.ErrForbidden
	}
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireViewed(ctx, versionID, user.ID); err != nil {
		return nil, err
	}
	if version.Status != model.StatusPublished {
		return nil, appErr.ErrInvalidTransition
	}
	now := s.now()
	ok, err := s.versions.Transition(ctx, versionID, model.StatusPublished, model.StatusArchived, map[string]interface{}{
		"archived_at":    now,
		"archived_by_id": user.ID,
	}, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.ErrInvalidTransition
	}
	if err := s.documents.SetStatusIfCurrent(ctx, version.DocumentID, versionID, model.StatusArchived, now); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, user, model.AuditVersionArchived, "DocumentVersion", versionID,
		"archived "+version.VersionString()+" (signed)", nil)
	return s.versions.GetByID(ctx, versionID)
}
