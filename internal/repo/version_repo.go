package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docstack/docstack/internal/model"
	"github.com/docstack/docstack/internal/pkg/dbutil"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
)

type VersionRepo struct {
	db *sql.DB
}

func NewVersionRepo(db *sql.DB) *VersionRepo {
	return &VersionRepo{db: db}
}

var versionFields = []string{
	"id", "document_id", "major", "minor", "parent_version_id", "change_type",
	"change_reason", "change_summary", "content_html", "content_hash",
	"lock_version", "status", "created_by_id",
	"submitted_at", "submitted_by_id", "reviewed_at", "reviewed_by_id",
	"approved_at", "approved_by_id", "approval_comments",
	"published_at", "published_by_id", "rejected_at", "rejected_by_id",
	"rejection_reason", "archived_at", "archived_by_id", "obsoleted_at",
	"ctime", "mtime",
}

var versionSummaryFields = []string{"id", "document_id", "major", "minor", "status", "change_summary", "created_by_id", "ctime", "mtime"}

func (r *VersionRepo) Create(ctx context.Context, v *model.DocumentVersion) error {
	data := map[string]interface{}{
		"id":                v.ID,
		"document_id":       v.DocumentID,
		"major":             v.Major,
		"minor":             v.Minor,
		"parent_version_id": v.ParentVersionID,
		"change_type":       string(v.ChangeType),
		"change_reason":     v.ChangeReason,
		"change_summary":    v.ChangeSummary,
		"content_html":      v.ContentHTML,
		"content_hash":      v.ContentHash,
		"lock_version":      v.LockVersion,
		"status":            string(v.Status),
		"created_by_id":     v.CreatedByID,
		"ctime":             v.Ctime,
		"mtime":             v.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("document_versions", []map[string]interface{}{data})
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

func (r *VersionRepo) GetByID(ctx context.Context, id string) (*model.DocumentVersion, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("document_versions", where, versionFields)
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
	return scanVersion(rows)
}

// ListByDocument returns version summaries newest-number first, without
// content. Content retrieval is a separately costed per-version read.
func (r *VersionRepo) ListByDocument(ctx context.Context, docID string) ([]model.VersionSummary, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"_orderby":    "major desc, minor desc",
	}
	sqlStr, args, err := builder.BuildSelect("document_versions", where, versionSummaryFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	summaries := make([]model.VersionSummary, 0)
	for rows.Next() {
		var s model.VersionSummary
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.Major, &s.Minor, &s.Status, &s.ChangeSummary, &s.CreatedByID, &s.Ctime, &s.Mtime); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ReplaceContent performs the optimistic-concurrency content swap as one
// atomic statement. With a non-empty baseHash the update only applies while
// the stored hash still matches; ok reports whether a row was written. The
// row lock taken by UPDATE serializes racing saves so exactly one of two
// stale-base saves can win.
func (r *VersionRepo) ReplaceContent(ctx context.Context, id, content, hash, baseHash string, now int64) (int, bool, error) {
	var rows *sql.Rows
	var err error
	if baseHash != "" {
		sqlStr := `UPDATE document_versions
			SET content_html = $1, content_hash = $2, lock_version = lock_version + 1, mtime = $3
			WHERE id = $4 AND status = $5 AND content_hash = $6
			RETURNING lock_version`
		rows, err = r.db.QueryContext(ctx, sqlStr, content, hash, now, id, string(model.StatusDraft), baseHash)
	} else {
		sqlStr := `UPDATE document_versions
			SET content_html = $1, content_hash = $2, lock_version = lock_version + 1, mtime = $3
			WHERE id = $4 AND status = $5
			RETURNING lock_version`
		rows, err = r.db.QueryContext(ctx, sqlStr, content, hash, now, id, string(model.StatusDraft))
	}
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var lockVersion int
	if err := rows.Scan(&lockVersion); err != nil {
		return 0, false, err
	}
	return lockVersion, true, nil
}

// Transition applies a guarded status change: the update only fires while the
// version is still in the expected from-status, which makes concurrent
// transitions race-safe without explicit locking. ok=false means the guard
// failed.
func (r *VersionRepo) Transition(ctx context.Context, id string, from, to model.VersionStatus, set map[string]interface{}, now int64) (bool, error) {
	where := map[string]interface{}{
		"id":     id,
		"status": string(from),
	}
	update := map[string]interface{}{
		"status": string(to),
		"mtime":  now,
	}
	for k, v := range set {
		update[k] = v
	}
	sqlStr, args, err := builder.BuildUpdate("document_versions", where, update)
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Publish moves an approved version to PUBLISHED, obsoletes any other
// published version of the same document, and repoints the document row, all
// inside one transaction so there is no window with two published versions.
// Siblings are obsoleted before the promotion so the partial unique index on
// published version numbers only sees one published row at a time; a racing
// publish of a same-numbered version loses with ErrConflict.
func (r *VersionRepo) Publish(ctx context.Context, docID, versionID, userID string, now int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE document_versions
		SET status = $1, obsoleted_at = $2, mtime = $2
		WHERE document_id = $3 AND status = $4 AND id <> $5`,
		string(model.StatusObsolete), now, docID, string(model.StatusPublished), versionID); err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `UPDATE document_versions
		SET status = $1, published_at = $2, published_by_id = $3, mtime = $2
		WHERE id = $4 AND status = $5`,
		string(model.StatusPublished), now, userID, versionID, string(model.StatusApproved))
	if err != nil {
		if dbutil.IsUniqueViolation(err) {
			return false, appErr.ErrConflict
		}
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE documents
		SET current_version_id = $1, status = $2, mtime = $3
		WHERE id = $4`,
		versionID, string(model.StatusPublished), now, docID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		if dbutil.IsUniqueViolation(err) {
			return false, appErr.ErrConflict
		}
		return false, err
	}
	return true, nil
}

// GetPublished returns the currently effective version of a document, if any.
func (r *VersionRepo) GetPublished(ctx context.Context, docID string) (*model.DocumentVersion, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"status":      string(model.StatusPublished),
	}
	sqlStr, args, err := builder.BuildSelect("document_versions", where, versionFields)
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
	return scanVersion(rows)
}

func (r *VersionRepo) UpdateChangeSummary(ctx context.Context, id, summary string, now int64) error {
	where := map[string]interface{}{
		"id":     id,
		"status": string(model.StatusDraft),
	}
	update := map[string]interface{}{
		"change_summary": summary,
		"mtime":          now,
	}
	sqlStr, args, err := builder.BuildUpdate("document_versions", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func scanVersion(rows *sql.Rows) (*model.DocumentVersion, error) {
	var v model.DocumentVersion
	var changeType, status string
	if err := rows.Scan(
		&v.ID, &v.DocumentID, &v.Major, &v.Minor, &v.ParentVersionID, &changeType,
		&v.ChangeReason, &v.ChangeSummary, &v.ContentHTML, &v.ContentHash,
		&v.LockVersion, &status, &v.CreatedByID,
		&v.SubmittedAt, &v.SubmittedByID, &v.ReviewedAt, &v.ReviewedByID,
		&v.ApprovedAt, &v.ApprovedByID, &v.ApprovalComments,
		&v.PublishedAt, &v.PublishedByID, &v.RejectedAt, &v.RejectedByID,
		&v.RejectionReason, &v.ArchivedAt, &v.ArchivedByID, &v.ObsoletedAt,
		&v.Ctime, &v.Mtime,
	); err != nil {
		return nil, err
	}
	v.ChangeType = model.ChangeType(changeType)
	v.Status = model.VersionStatus(status)
	return &v, nil
}
