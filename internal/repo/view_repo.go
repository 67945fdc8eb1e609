package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docstack/docstack/internal/model"
	"github.com/docstack/docstack/internal/pkg/dbutil"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
)

type ViewRepo struct {
	db *sql.DB
}

func NewViewRepo(db *sql.DB) *ViewRepo {
	return &ViewRepo{db: db}
}

// Upsert records the first time a user opened a version; later views keep the
// original timestamp.
func (r *ViewRepo) Upsert(ctx context.Context, view *model.DocumentView) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO document_views (id, document_id, version_id, user_id, viewed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (version_id, user_id) DO NOTHING`,
		view.ID, view.DocumentID, view.VersionID, view.UserID, view.ViewedAt)
	return err
}

func (r *ViewRepo) Get(ctx context.Context, versionID, userID string) (*model.DocumentView, error) {
	where := map[string]interface{}{
		"version_id": versionID,
		"user_id":    userID,
	}
	sqlStr, args, err := builder.BuildSelect("document_views", where, []string{"id", "document_id", "version_id", "user_id", "viewed_at"})
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
	var v model.DocumentView
	if err := rows.Scan(&v.ID, &v.DocumentID, &v.VersionID, &v.UserID, &v.ViewedAt); err != nil {
		return nil, err
	}
	return &v, nil
}
