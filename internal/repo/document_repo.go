package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docstack/docstack/internal/model"
	"github.com/docstack/docstack/internal/pkg/dbutil"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
)

const (
	DocumentStateNormal  = 1
	DocumentStateDeleted = 2
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

var documentFields = []string{"id", "number", "title", "description", "department", "owner_id", "created_by_id", "current_version_id", "status", "state", "ctime", "mtime"}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":                 doc.ID,
		"number":             doc.Number,
		"title":              doc.Title,
		"description":        doc.Description,
		"department":         doc.Department,
		"owner_id":           doc.OwnerID,
		"created_by_id":      doc.CreatedByID,
		"current_version_id": doc.CurrentVersionID,
		"status":             doc.Status,
		"state":              doc.State,
		"ctime":              doc.Ctime,
		"mtime":              doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
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

func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	where := map[string]interface{}{
		"id":    id,
		"state": DocumentStateNormal,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
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
	return scanDocument(rows)
}

func (r *DocumentRepo) List(ctx context.Context, department, status string, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"state":    DocumentStateNormal,
		"_orderby": "mtime desc",
	}
	if department != "" {
		where["department"] = department
	}
	if status != "" {
		where["status"] = status
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) UpdateMeta(ctx context.Context, doc *model.Document) error {
	where := map[string]interface{}{
		"id":    doc.ID,
		"state": DocumentStateNormal,
	}
	update := map[string]interface{}{
		"title":       doc.Title,
		"description": doc.Description,
		"department":  doc.Department,
		"owner_id":    doc.OwnerID,
		"mtime":       doc.Mtime,
	}
	return r.update(ctx, where, update)
}

// SetCurrentVersion moves the document's current-version pointer and mirrors
// that version's status onto the document row.
func (r *DocumentRepo) SetCurrentVersion(ctx context.Context, docID, versionID string, status model.VersionStatus, now int64) error {
	where := map[string]interface{}{
		"id":    docID,
		"state": DocumentStateNormal,
	}
	update := map[string]interface{}{
		"current_version_id": versionID,
		"status":             string(status),
		"mtime":              now,
	}
	return r.update(ctx, where, update)
}

// SetStatusIfCurrent mirrors a version's status onto the document only when
// that version is still the document's current one.
func (r *DocumentRepo) SetStatusIfCurrent(ctx context.Context, docID, versionID string, status model.VersionStatus, now int64) error {
	where := map[string]interface{}{
		"id":                 docID,
		"current_version_id": versionID,
		"state":              DocumentStateNormal,
	}
	update := map[string]interface{}{
		"status": string(status),
		"mtime":  now,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DocumentRepo) SoftDelete(ctx context.Context, docID string, now int64) error {
	where := map[string]interface{}{
		"id":    docID,
		"state": DocumentStateNormal,
	}
	update := map[string]interface{}{
		"state": DocumentStateDeleted,
		"mtime": now,
	}
	return r.update(ctx, where, update)
}

// MaxNumber returns the highest document number matching the given prefix,
// used for sequential number generation.
func (r *DocumentRepo) MaxNumber(ctx context.Context, prefix string) (string, error) {
	sqlStr := `SELECT number FROM documents WHERE number LIKE $1 ORDER BY number DESC LIMIT 1`
	rows, err := r.db.QueryContext(ctx, sqlStr, prefix+"%")
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return "", appErr.ErrNotFound
	}
	var number string
	if err := rows.Scan(&number); err != nil {
		return "", err
	}
	return number, nil
}

func (r *DocumentRepo) update(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
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

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var d model.Document
	if err := rows.Scan(&d.ID, &d.Number, &d.Title, &d.Description, &d.Department, &d.OwnerID, &d.CreatedByID, &d.CurrentVersionID, &d.Status, &d.State, &d.Ctime, &d.Mtime); err != nil {
		return nil, err
	}
	return &d, nil
}
