package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docstack/docstack/internal/model"
	"github.com/docstack/docstack/internal/pkg/dbutil"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
)

// LockRepo stores at most one lock row per document version; the UNIQUE
// constraint on version_id is what turns two racing acquires into exactly one
// winner.
type LockRepo struct {
	db *sql.DB
}

func NewLockRepo(db *sql.DB) *LockRepo {
	return &LockRepo{db: db}
}

var lockFields = []string{"id", "version_id", "user_id", "token", "session_id", "acquired_at", "expires_at", "last_heartbeat"}

func (r *LockRepo) Insert(ctx context.Context, lock *model.EditLock) error {
	data := map[string]interface{}{
		"id":             lock.ID,
		"version_id":     lock.VersionID,
		"user_id":        lock.UserID,
		"token":          lock.Token,
		"session_id":     lock.SessionID,
		"acquired_at":    lock.AcquiredAt,
		"expires_at":     lock.ExpiresAt,
		"last_heartbeat": lock.LastHeartbeat,
	}
	sqlStr, args, err := builder.BuildInsert("edit_locks", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsUniqueViolation(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *LockRepo) GetByVersion(ctx context.Context, versionID string) (*model.EditLock, error) {
	where := map[string]interface{}{"version_id": versionID}
	sqlStr, args, err := builder.BuildSelect("edit_locks", where, lockFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var l model.EditLock
	if err := rows.Scan(&l.ID, &l.VersionID, &l.UserID, &l.Token, &l.SessionID, &l.AcquiredAt, &l.ExpiresAt, &l.LastHeartbeat); err != nil {
		return nil, err
	}
	return &l, nil
}

// Refresh rotates the token (same-user re-acquire) or extends expiry
// (heartbeat). The token guard in the WHERE clause keeps the update from
// clobbering a lock that changed hands between read and write.
func (r *LockRepo) Refresh(ctx context.Context, versionID, currentToken, newToken string, expiresAt, heartbeatAt int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE edit_locks
		SET token = $1, expires_at = $2, last_heartbeat = $3
		WHERE version_id = $4 AND token = $5`,
		newToken, expiresAt, heartbeatAt, versionID, currentToken)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Delete removes a lock row only when the token still matches; absent rows
// are not an error (release is idempotent).
func (r *LockRepo) Delete(ctx context.Context, versionID, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM edit_locks WHERE version_id = $1 AND token = $2`, versionID, token)
	return err
}

// DeleteExpired prunes lock rows past their expiry. Correctness never needs
// this; expiry is checked lazily on every read. This is storage hygiene for
// the cron sweep.
func (r *LockRepo) DeleteExpired(ctx context.Context, before int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM edit_locks WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
