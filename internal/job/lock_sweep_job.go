package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docstack/docstack/internal/service"
)

// LockSweepJob deletes expired edit-lock rows. Expiry is already enforced
// lazily on every lock read; the sweep only reclaims storage, so its cadence
// does not affect correctness.
type LockSweepJob struct {
	locks *service.LockService
}

func NewLockSweepJob(locks *service.LockService) *LockSweepJob {
	return &LockSweepJob{locks: locks}
}

func (j *LockSweepJob) Name() string {
	return "lock_sweep"
}

func (j *LockSweepJob) Run(ctx context.Context) error {
	deleted, err := j.locks.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("swept expired edit locks", zap.Int64("deleted", deleted))
	}
	return nil
}
