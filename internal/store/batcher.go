package store

import (
	"context"
	"fmt"
)

// Batcher accumulates deletes and commits them whenever the pending batch
// reaches its limit. A failed commit drops that batch; the next queued op
// starts a fresh one.
type Batcher struct {
	store     Store
	limit     int
	batch     Batch
	commits   int
	committed int
}

func NewBatcher(s Store, limit int) *Batcher {
	if limit <= 0 || limit > MaxBatchOps {
		limit = MaxBatchOps
	}
	return &Batcher{store: s, limit: limit}
}

// Delete queues a delete and flushes if the batch is now full.
func (b *Batcher) Delete(ctx context.Context, path string) error {
	if b.batch == nil {
		b.batch = b.store.NewBatch()
	}
	b.batch.Delete(path)
	if b.batch.Len() >= b.limit {
		return b.Flush(ctx)
	}
	return nil
}

func (b *Batcher) Pending() int {
	if b.batch == nil {
		return 0
	}
	return b.batch.Len()
}

func (b *Batcher) Flush(ctx context.Context) error {
	if b.Pending() == 0 {
		return nil
	}
	batch := b.batch
	b.batch = nil
	n := batch.Len()
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch of %d ops: %w", n, err)
	}
	b.commits++
	b.committed += n
	return nil
}

func (b *Batcher) Commits() int {
	return b.commits
}

func (b *Batcher) Committed() int {
	return b.committed
}
