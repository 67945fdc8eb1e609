package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docstack/docstack/internal/service"
)

// AuditRetentionJob prunes audit entries past the configured retention
// horizon. The default horizon is ten years; regulated deployments tune it
// per their records policy.
type AuditRetentionJob struct {
	audit     *service.AuditService
	retention time.Duration
}

func NewAuditRetentionJob(audit *service.AuditService, retentionDays int) *AuditRetentionJob {
	return &AuditRetentionJob{
		audit:     audit,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

func (j *AuditRetentionJob) Name() string {
	return "audit_retention"
}

func (j *AuditRetentionJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}
	deleted, err := j.audit.DeleteOlderThan(ctx, j.retention)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("pruned audit entries", zap.Int64("deleted", deleted))
	}
	return nil
}
