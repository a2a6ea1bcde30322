package trigger

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/imtahan-notifier/internal/model"
)

// Handler processes one "outbox record created" event.
type Handler func(ctx context.Context, rec *model.OutboxRecord)

// Source delivers creation events until ctx is done. Run returns after every
// in-flight handler has finished.
type Source interface {
	Run(ctx context.Context, h Handler) error
}

// inflight runs handlers concurrently and recovers panics so one bad record
// cannot take the source down.
type inflight struct {
	wg sync.WaitGroup
}

func (f *inflight) spawn(ctx context.Context, h Handler, rec *model.OutboxRecord) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.call(ctx, h, rec)
	}()
}

func (f *inflight) call(ctx context.Context, h Handler, rec *model.OutboxRecord) {
	defer func() {
		if r := recover(); r != nil {
			logutil.GetLogger(ctx).Error("notification handler panic",
				zap.String("notification_id", rec.ID),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()
	h(ctx, rec)
}

func (f *inflight) wait() {
	f.wg.Wait()
}
