package job

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/repo"
	"github.com/xxxsen/imtahan-notifier/internal/store"
)

func seedPost(t *testing.T, mem *store.Memory, id string, expiresAt time.Time, answers int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mem.Create(ctx, model.PostPath(id), map[string]interface{}{
		model.FieldExpiresAt: expiresAt,
		"text":               "sual " + id,
	}))
	for i := 0; i < answers; i++ {
		require.NoError(t, mem.Create(ctx, model.AnswerPath(id, fmt.Sprintf("a%04d", i)), map[string]interface{}{
			"text": "cavab",
		}))
	}
}

func newContentJob(mem *store.Memory, now time.Time) *ContentCleanupJob {
	return NewContentCleanupJob(mem, repo.NewPostRepo(mem), func() time.Time { return now })
}

func TestContentCleanupJob_Expiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 4, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	seedPost(t, mem, "expired", now.Add(-time.Second), 3)
	seedPost(t, mem, "live", now.Add(time.Second), 2)

	j := newContentJob(mem, now)
	require.Equal(t, "content_cleanup", j.Name())
	res, err := j.Reap(context.Background())
	require.NoError(t, err)
	require.Equal(t, ContentResult{Posts: 1, Answers: 3, Committed: 4}, res)

	require.False(t, exists(t, mem, model.PostPath("expired")))
	require.Equal(t, 0, mem.Len(model.AnswersPath("expired")))
	require.True(t, exists(t, mem, model.PostPath("live")))
	require.Equal(t, 2, mem.Len(model.AnswersPath("live")))
}

func TestContentCleanupJob_NothingExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 4, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	seedPost(t, mem, "live", now.Add(time.Hour), 1)
	writes := mem.Writes()

	require.NoError(t, newContentJob(mem, now).Run(context.Background()))
	require.Equal(t, writes, mem.Writes())
	require.Empty(t, mem.Commits())
}

func TestContentCleanupJob_BatchCapAcrossLargePost(t *testing.T) {
	now := time.Date(2026, 8, 1, 4, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	seedPost(t, mem, "p1", now.Add(-time.Hour), 120)
	seedPost(t, mem, "p2", now.Add(-time.Hour), 1100)
	seedPost(t, mem, "p3", now.Add(-time.Hour), 7)

	res, err := newContentJob(mem, now).Reap(context.Background())
	require.NoError(t, err)
	require.Equal(t, ContentResult{Posts: 3, Answers: 1227, Committed: 1230}, res)

	total := 0
	for _, n := range mem.Commits() {
		require.LessOrEqual(t, n, store.MaxBatchOps)
		total += n
	}
	require.Equal(t, 1230, total)
	require.Equal(t, []int{500, 500, 230}, mem.Commits())
	require.Equal(t, 0, mem.Len(model.PostCollection))
	require.Equal(t, 0, mem.Len(model.AnswersPath("p2")))
}

func TestContentCleanupJob_PostFailureIsIsolated(t *testing.T) {
	now := time.Date(2026, 8, 1, 4, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	seedPost(t, mem, "a", now.Add(-time.Hour), 2)
	seedPost(t, mem, "b", now.Add(-time.Hour), 2)
	seedPost(t, mem, "c", now.Add(-time.Hour), 0)
	mem.SetHooks(store.MemoryHooks{BeforeList: func(collectionPath string) error {
		if collectionPath == model.AnswersPath("a") {
			return errors.New("deadline exceeded")
		}
		return nil
	}})

	res, err := newContentJob(mem, now).Reap(context.Background())
	require.NoError(t, err)
	require.Equal(t, ContentResult{Posts: 2, Answers: 2, Failed: 1, Committed: 4}, res)

	require.True(t, exists(t, mem, model.PostPath("a")))
	require.Equal(t, 2, mem.Len(model.AnswersPath("a")))
	require.False(t, exists(t, mem, model.PostPath("b")))
	require.False(t, exists(t, mem, model.PostPath("c")))
}

func TestContentCleanupJob_MidPostCommitFailureContinues(t *testing.T) {
	now := time.Date(2026, 8, 1, 4, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	seedPost(t, mem, "big", now.Add(-time.Hour), 600)
	seedPost(t, mem, "small", now.Add(-time.Hour), 1)
	commits := 0
	mem.SetHooks(store.MemoryHooks{BeforeCommit: func(int) error {
		commits++
		if commits == 1 {
			return errors.New("aborted")
		}
		return nil
	}})

	res, err := newContentJob(mem, now).Reap(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, 1, res.Posts)
	require.Equal(t, 2, res.Committed)
	require.Greater(t, res.Answers, res.Committed)
	require.False(t, exists(t, mem, model.PostPath("small")))
	require.Equal(t, []int{2}, mem.Commits())
}
