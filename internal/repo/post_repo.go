package repo

import (
	"context"
	"time"

	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/store"
)

type PostRepo struct {
	store store.Store
}

func NewPostRepo(s store.Store) *PostRepo {
	return &PostRepo{store: s}
}

func (r *PostRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Post, error) {
	docs, err := r.store.Query(ctx, store.Query{
		Collection: model.PostCollection,
		Filters:    []store.Filter{{Field: model.FieldExpiresAt, Op: store.OpLess, Value: now}},
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Post, 0, len(docs))
	for _, doc := range docs {
		out = append(out, model.Post{ID: doc.ID, ExpiresAt: timeField(doc.Data, model.FieldExpiresAt)})
	}
	return out, nil
}

func (r *PostRepo) ListAnswers(ctx context.Context, postID string) ([]model.Answer, error) {
	docs, err := r.store.List(ctx, model.AnswersPath(postID))
	if err != nil {
		return nil, err
	}
	out := make([]model.Answer, 0, len(docs))
	for _, doc := range docs {
		out = append(out, model.Answer{ID: doc.ID, PostID: postID})
	}
	return out, nil
}
