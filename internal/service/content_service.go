package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
	"github.com/docstack/docstack/internal/pkg/hashutil"
	"github.com/docstack/docstack/internal/pkg/timeutil"
)

// autosaveAuditEvery throttles audit noise: manual saves are always logged,
// autosaves only every Nth successful save.
const autosaveAuditEvery = 10

// ContentService is the save pipeline: it validates workflow state, lock
// ownership and content freshness, then swaps content atomically.
type ContentService struct {
	versions VersionStore
	locks    *LockService
	audit    *AuditService
	now      func() int64
}

func NewContentService(versions VersionStore, locks *LockService, audit *AuditService) *ContentService {
	return &ContentService{versions: versions, locks: locks, audit: audit, now: timeutil.NowUnix}
}

type SaveInput struct {
	ContentHTML string
	// BaseHash is the hash the client last loaded. Empty means force-save:
	// replace unconditionally (still requires holding the lock).
	BaseHash   string
	LockToken  string
	IsAutosave bool
}

type SaveResult struct {
	Hash        string `json:"hash"`
	SavedAt     int64  `json:"saved_at"`
	LockVersion int    `json:"lock_version"`
}

// Save applies one autosave or manual save. Preconditions are checked in
// order: draft status, lock ownership, content freshness. A stale base hash
// yields SaveConflictError carrying the authoritative server state; the
// stored content is left untouched.
func (s *ContentService) Save(ctx context.Context, versionID string, user *model.User, in SaveInput) (*SaveResult, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status != model.StatusDraft {
		return nil, appErr.ErrInvalidState
	}
	if err := s.locks.VerifyHeld(ctx, versionID, user.ID, in.LockToken); err != nil {
		return nil, err
	}
	if in.BaseHash != "" && in.BaseHash != version.ContentHash {
		return nil, &appErr.SaveConflictError{
			ServerHash:    version.ContentHash,
			ServerContent: version.ContentHTML,
		}
	}

	newHash := hashutil.ContentHash(in.ContentHTML)
	now := s.now()
	lockVersion, ok, err := s.versions.ReplaceContent(ctx, versionID, in.ContentHTML, newHash, in.BaseHash, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a save/save race after the freshness pre-check; re-read for
		// the authoritative state.
		current, err := s.versions.GetByID(ctx, versionID)
		if err != nil {
			return nil, err
		}
		if current.Status != model.StatusDraft {
			return nil, appErr.ErrInvalidState
		}
		return nil, &appErr.SaveConflictError{
			ServerHash:    current.ContentHash,
			ServerContent: current.ContentHTML,
		}
	}

	logutil.GetLogger(ctx).Debug("content saved",
		zap.String("version_id", versionID),
		zap.String("user_id", user.ID),
		zap.Bool("autosave", in.IsAutosave),
		zap.Int("lock_version", lockVersion),
	)
	if !in.IsAutosave || lockVersion%autosaveAuditEvery == 0 {
		action := model.AuditVersionSaved
		if in.IsAutosave {
			action = model.AuditVersionAutosaved
		}
		s.audit.Log(ctx, user, action, "DocumentVersion", versionID,
			"saved version content",
			map[string]interface{}{
				"before_hash":  version.ContentHash,
				"after_hash":   newHash,
				"is_autosave":  in.IsAutosave,
				"lock_version": lockVersion,
			})
	}
	return &SaveResult{Hash: newHash, SavedAt: now, LockVersion: lockVersion}, nil
}
