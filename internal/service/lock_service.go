package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
	"github.com/docstack/docstack/internal/pkg/timeutil"
)

// LockService manages the edit lease on a document version: at most one
// active (non-expired) lock per version at any instant. Expiry is evaluated
// lazily against the clock on every operation; no background sweep is needed
// for correctness.
type LockService struct {
	locks      LockStore
	versions   VersionStore
	users      UserStore
	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() int64
}

func NewLockService(locks LockStore, versions VersionStore, users UserStore, defaultTTL, maxTTL time.Duration) *LockService {
	return &LockService{
		locks:      locks,
		versions:   versions,
		users:      users,
		defaultTTL: defaultTTL,
		maxTTL:     maxTTL,
		now:        timeutil.NowUnix,
	}
}

type LockStatus struct {
	Locked     bool   `json:"locked"`
	HolderID   string `json:"holder_id,omitempty"`
	HolderName string `json:"holder_name,omitempty"`
	ExpiresAt  int64  `json:"expires_at,omitempty"`
	IsMine     bool   `json:"is_mine,omitempty"`
}

func tokenEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// tokenPrefix is the only part of a lock token that ever reaches a log line.
func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}

func (s *LockService) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	if ttl > s.maxTTL {
		return s.maxTTL
	}
	return ttl
}

// Acquire grants the edit lease on a draft version. Same-user acquisition is
// re-entrant: it rotates the token and extends the lease instead of failing.
func (s *LockService) Acquire(ctx context.Context, versionID, userID, sessionID string, ttl time.Duration) (*model.EditLock, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status != model.StatusDraft {
		return nil, appErr.ErrInvalidState
	}
	ttl = s.clampTTL(ttl)
	now := s.now()

	existing, err := s.locks.GetByVersion(ctx, versionID)
	if err != nil && !errors.Is(err, appErr.ErrNotFound) {
		return nil, err
	}
	if existing != nil && !existing.IsExpired(now) {
		if existing.UserID != userID {
			return nil, s.alreadyLocked(ctx, existing)
		}
		// Re-entrant acquire: fresh token, extended lease, same row.
		token := newLockToken()
		expiresAt := now + int64(ttl.Seconds())
		ok, err := s.locks.Refresh(ctx, versionID, existing.Token, token, expiresAt, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Row changed hands between read and write; report the winner.
			return nil, s.currentHolder(ctx, versionID)
		}
		existing.Token = token
		existing.ExpiresAt = expiresAt
		existing.LastHeartbeat = now
		return existing, nil
	}
	if existing != nil {
		// Stale row from a crashed editor; clear it before re-inserting.
		if err := s.locks.Delete(ctx, versionID, existing.Token); err != nil {
			return nil, err
		}
	}

	lock := &model.EditLock{
		ID:            newID(),
		VersionID:     versionID,
		UserID:        userID,
		Token:         newLockToken(),
		SessionID:     sessionID,
		AcquiredAt:    now,
		ExpiresAt:     now + int64(ttl.Seconds()),
		LastHeartbeat: now,
	}
	if err := s.locks.Insert(ctx, lock); err != nil {
		if appErr.IsConflict(err) {
			// Lost the race to a concurrent acquire.
			return nil, s.currentHolder(ctx, versionID)
		}
		return nil, err
	}
	logutil.GetLogger(ctx).Info("edit lock acquired",
		zap.String("version_id", versionID),
		zap.String("user_id", userID),
		zap.String("token_prefix", tokenPrefix(lock.Token)),
		zap.Int64("expires_at", lock.ExpiresAt),
	)
	return lock, nil
}

// Heartbeat extends the lease. A heartbeat after expiry always fails; the
// client must re-acquire.
func (s *LockService) Heartbeat(ctx context.Context, versionID, token string, extendBy time.Duration) (int64, error) {
	lock, err := s.locks.GetByVersion(ctx, versionID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	// An expired lease is already gone as far as callers are concerned, no
	// matter what token they present.
	if lock.IsExpired(now) {
		return 0, appErr.ErrLockExpired
	}
	if !tokenEqual(lock.Token, token) {
		return 0, appErr.ErrTokenMismatch
	}
	extendBy = s.clampTTL(extendBy)
	expiresAt := now + int64(extendBy.Seconds())
	ok, err := s.locks.Refresh(ctx, versionID, token, token, expiresAt, now)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, appErr.ErrNotFound
	}
	return expiresAt, nil
}

// Release drops the lease. Releasing an absent or expired lock is not an
// error; releasing someone else's active lock is.
func (s *LockService) Release(ctx context.Context, versionID, token string) error {
	lock, err := s.locks.GetByVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil
		}
		return err
	}
	now := s.now()
	if !tokenEqual(lock.Token, token) {
		if lock.IsExpired(now) {
			return nil
		}
		return appErr.ErrTokenMismatch
	}
	if err := s.locks.Delete(ctx, versionID, lock.Token); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("edit lock released",
		zap.String("version_id", versionID),
		zap.String("token_prefix", tokenPrefix(token)),
	)
	return nil
}

// Status is a pure read; it never mutates the lock row even when expired.
func (s *LockService) Status(ctx context.Context, versionID, callerID string) (*LockStatus, error) {
	lock, err := s.locks.GetByVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return &LockStatus{}, nil
		}
		return nil, err
	}
	if lock.IsExpired(s.now()) {
		return &LockStatus{}, nil
	}
	status := &LockStatus{
		Locked:    true,
		HolderID:  lock.UserID,
		ExpiresAt: lock.ExpiresAt,
		IsMine:    lock.UserID == callerID,
	}
	if holder, err := s.users.GetByID(ctx, lock.UserID); err == nil {
		status.HolderName = holder.Username
	}
	return status, nil
}

// VerifyHeld checks that token names the active lock held by userID on the
// version. Used by the save pipeline.
func (s *LockService) VerifyHeld(ctx context.Context, versionID, userID, token string) error {
	lock, err := s.locks.GetByVersion(ctx, versionID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return appErr.ErrNotLocked
		}
		return err
	}
	if lock.IsExpired(s.now()) {
		return appErr.ErrLockExpired
	}
	if lock.UserID != userID {
		return s.alreadyLocked(ctx, lock)
	}
	if !tokenEqual(lock.Token, token) {
		return appErr.ErrTokenMismatch
	}
	return nil
}

// SweepExpired deletes lock rows past expiry. Called from the cron job.
func (s *LockService) SweepExpired(ctx context.Context) (int64, error) {
	return s.locks.DeleteExpired(ctx, s.now())
}

func (s *LockService) alreadyLocked(ctx context.Context, lock *model.EditLock) error {
	lockErr := &appErr.AlreadyLockedError{
		HolderID:  lock.UserID,
		ExpiresAt: lock.ExpiresAt,
	}
	if holder, err := s.users.GetByID(ctx, lock.UserID); err == nil {
		lockErr.HolderName = holder.Username
	}
	return lockErr
}

func (s *LockService) currentHolder(ctx context.Context, versionID string) error {
	lock, err := s.locks.GetByVersion(ctx, versionID)
	if err != nil {
		return appErr.ErrAlreadyLocked
	}
	return s.alreadyLocked(ctx, lock)
}
