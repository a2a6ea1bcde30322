package trigger

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"

	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/repo"
)

// StoreSource listens to unsent outbox records directly on the store. Records
// already pending when it starts are delivered too.
type StoreSource struct {
	outbox *repo.OutboxRepo
}

func NewStoreSource(outbox *repo.OutboxRepo) *StoreSource {
	return &StoreSource{outbox: outbox}
}

func (s *StoreSource) Run(ctx context.Context, h Handler) error {
	var running inflight
	logutil.GetLogger(ctx).Info("watching outbox for new notifications")
	err := s.outbox.WatchPending(ctx, func(ctx context.Context, rec *model.OutboxRecord) {
		running.spawn(ctx, h, rec)
	})
	running.wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
