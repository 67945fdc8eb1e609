package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docstack/docstack/internal/model"
	"github.com/docstack/docstack/internal/pkg/dbutil"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
)

type AttachmentRepo struct {
	db *sql.DB
}

func NewAttachmentRepo(db *sql.DB) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

var attachmentFields = []string{"id", "version_id", "file_name", "content_type", "size_bytes", "store_key", "uploaded_by_id", "ctime"}

func (r *AttachmentRepo) Create(ctx context.Context, att *model.Attachment) error {
	data := map[string]interface{}{
		"id":             att.ID,
		"version_id":     att.VersionID,
		"file_name":      att.FileName,
		"content_type":   att.ContentType,
		"size_bytes":     att.SizeBytes,
		"store_key":      att.StoreKey,
		"uploaded_by_id": att.UploadedByID,
		"ctime":          att.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("attachments", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *AttachmentRepo) GetByID(ctx context.Context, id string) (*model.Attachment, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("attachments", where, attachmentFields)
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
	return scanAttachment(rows)
}

func (r *AttachmentRepo) ListByVersion(ctx context.Context, versionID string) ([]model.Attachment, error) {
	where := map[string]interface{}{
		"version_id": versionID,
		"_orderby":   "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("attachments", where, attachmentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	atts := make([]model.Attachment, 0)
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		atts = append(atts, *att)
	}
	return atts, rows.Err()
}

func scanAttachment(rows *sql.Rows) (*model.Attachment, error) {
	var a model.Attachment
	if err := rows.Scan(&a.ID, &a.VersionID, &a.FileName, &a.ContentType, &a.SizeBytes, &a.StoreKey, &a.UploadedByID, &a.Ctime); err != nil {
		return nil, err
	}
	return &a, nil
}
