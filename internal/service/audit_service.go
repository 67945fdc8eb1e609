package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docstack/docstack/internal/model"
	appErr "github.com/docstack/docstack/internal/pkg/errors"
	"github.com/docstack/docstack/internal/pkg/timeutil"
)

// AuditService emits one structured event per state-changing call. Failures
// to persist an entry are logged but never fail the calling operation.
type AuditService struct {
	entries AuditStore
}

func NewAuditService(entries AuditStore) *AuditService {
	return &AuditService{entries: entries}
}

func (s *AuditService) Log(ctx context.Context, user *model.User, action, entityType, entityID, description string, details map[string]interface{}) {
	entry := &model.AuditLog{
		ID:          newID(),
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		Ctime:       timeutil.NowUnix(),
	}
	if user != nil {
		entry.UserID = user.ID
		entry.Username = user.Username
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	logutil.GetLogger(ctx).Info("audit",
		zap.String("action", action),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("user_id", entry.UserID),
		zap.String("description", description),
	)
	if err := s.entries.Create(ctx, entry); err != nil {
		logutil.GetLogger(ctx).Error("persist audit entry failed", zap.Error(err), zap.String("action", action))
	}
}

func (s *AuditService) List(ctx context.Context, caller *model.User, entityType, entityID string, limit, offset uint) ([]model.AuditLog, error) {
	if !caller.IsAdmin() {
		return nil, appErr.ErrForbidden
	}
	return s.entries.List(ctx, entityType, entityID, limit, offset)
}

func (s *AuditService) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	return s.entries.DeleteOlderThan(ctx, cutoff)
}
