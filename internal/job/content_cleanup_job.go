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

// ContentResult counts posts and answers when their delete is queued.
// Committed is the number of delete ops whose batch actually committed.
type ContentResult struct {
	Posts     int
	Answers   int
	Failed    int
	Committed int
}

// ContentCleanupJob deletes expired posts together with their answers.
type ContentCleanupJob struct {
	store store.Store
	posts *repo.PostRepo
	now   func() time.Time
}

func NewContentCleanupJob(s store.Store, posts *repo.PostRepo, now func() time.Time) *ContentCleanupJob {
	if now == nil {
		now = time.Now
	}
	return &ContentCleanupJob{store: s, posts: posts, now: now}
}

func (j *ContentCleanupJob) Name() string {
	return "content_cleanup"
}

func (j *ContentCleanupJob) Run(ctx context.Context) error {
	_, err := j.Reap(ctx)
	return err
}

// Reap processes posts in query order. A failing post is logged and skipped;
// the batch is committed whenever it fills up, including in the middle of a
// post's answers.
func (j *ContentCleanupJob) Reap(ctx context.Context) (ContentResult, error) {
	var res ContentResult
	logger := logutil.GetLogger(ctx).With(zap.String("job", j.Name()))

	posts, err := j.posts.ListExpired(ctx, j.now(), store.MaxBatchOps)
	if err != nil {
		return res, fmt.Errorf("list expired posts: %w", err)
	}
	if len(posts) == 0 {
		logger.Info("no expired posts")
		return res, nil
	}

	b := store.NewBatcher(j.store, store.MaxBatchOps)
	for _, post := range posts {
		if err := j.cascade(ctx, b, post, &res); err != nil {
			res.Failed++
			logger.Error("delete expired post failed", zap.String("post_id", post.ID), zap.Error(err))
		}
	}
	err = b.Flush(ctx)
	res.Committed = b.Committed()
	if err != nil {
		logger.Error("commit final batch failed", zap.Int("committed_ops", res.Committed), zap.Error(err))
		return res, err
	}
	logger.Info("expired posts deleted",
		zap.Int("posts", res.Posts),
		zap.Int("answers", res.Answers),
		zap.Int("failed", res.Failed),
		zap.Int("committed_ops", res.Committed),
	)
	return res, nil
}

func (j *ContentCleanupJob) cascade(ctx context.Context, b *store.Batcher, post model.Post, res *ContentResult) error {
	answers, err := j.posts.ListAnswers(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("list answers: %w", err)
	}
	for _, answer := range answers {
		if err := b.Delete(ctx, model.AnswerPath(post.ID, answer.ID)); err != nil {
			return err
		}
		res.Answers++
	}
	if err := b.Delete(ctx, model.PostPath(post.ID)); err != nil {
		return err
	}
	res.Posts++
	return nil
}
