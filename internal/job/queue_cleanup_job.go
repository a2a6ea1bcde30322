package job

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/repo"
	"github.com/xxxsen/imtahan-notifier/internal/store"
)

// QueueCleanupJob deletes terminal outbox records older than the retention
// window, at most one batch per run.
type QueueCleanupJob struct {
	store     store.Store
	outbox    *repo.OutboxRepo
	retention time.Duration
	now       func() time.Time
}

func NewQueueCleanupJob(s store.Store, outbox *repo.OutboxRepo, retention time.Duration, now func() time.Time) *QueueCleanupJob {
	if now == nil {
		now = time.Now
	}
	return &QueueCleanupJob{store: s, outbox: outbox, retention: retention, now: now}
}

func (j *QueueCleanupJob) Name() string {
	return "queue_cleanup"
}

func (j *QueueCleanupJob) Run(ctx context.Context) error {
	_, err := j.Reap(ctx)
	return err
}

// Reap returns the number of deleted records.
func (j *QueueCleanupJob) Reap(ctx context.Context) (int, error) {
	retention := j.retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	cutoff := j.now().Add(-retention)
	logger := logutil.GetLogger(ctx).With(zap.String("job", j.Name()), zap.Time("cutoff", cutoff))

	records, err := j.outbox.ListSentBefore(ctx, cutoff, store.MaxBatchOps)
	if err != nil {
		return 0, fmt.Errorf("list sent notifications: %w", err)
	}
	if len(records) == 0 {
		logger.Info("no old notifications to delete")
		return 0, nil
	}

	b := store.NewBatcher(j.store, store.MaxBatchOps)
	for _, rec := range records {
		if err := b.Delete(ctx, model.OutboxPath(rec.ID)); err != nil {
			return 0, err
		}
	}
	if err := b.Flush(ctx); err != nil {
		return 0, err
	}
	logger.Info("old notifications deleted", zap.Int("count", len(records)))
	return len(records), nil
}
