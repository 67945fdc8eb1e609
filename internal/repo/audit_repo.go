package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/docstack/docstack/internal/model"
	"github.com/docstack/docstack/internal/pkg/dbutil"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

var auditFields = []string{"id", "user_id", "username", "action", "entity_type", "entity_id", "description", "details", "ctime"}

func (r *AuditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	data := map[string]interface{}{
		"id":          entry.ID,
		"user_id":     entry.UserID,
		"username":    entry.Username,
		"action":      entry.Action,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
		"description": entry.Description,
		"details":     entry.Details,
		"ctime":       entry.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("audit_logs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *AuditRepo) List(ctx context.Context, entityType, entityID string, limit, offset uint) ([]model.AuditLog, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	if entityType != "" {
		where["entity_type"] = entityType
	}
	if entityID != "" {
		where["entity_id"] = entityID
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("audit_logs", where, auditFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	entries := make([]model.AuditLog, 0)
	for rows.Next() {
		var e model.AuditLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &e.EntityType, &e.EntityID, &e.Description, &e.Details, &e.Ctime); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *AuditRepo) DeleteOlderThan(ctx context.Context, before int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE ctime < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
