package repo

import (
	"context"
	"time"

	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/store"
)

type OutboxRepo struct {
	store store.Store
}

func NewOutboxRepo(s store.Store) *OutboxRepo {
	return &OutboxRepo{store: s}
}

func (r *OutboxRepo) Get(ctx context.Context, id string) (*model.OutboxRecord, error) {
	if err := checkID("notification", id); err != nil {
		return nil, err
	}
	doc, err := r.store.Get(ctx, model.OutboxPath(id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return decodeOutbox(doc), nil
}

// Create writes a new unsent record. created_at is set by the store.
func (r *OutboxRepo) Create(ctx context.Context, rec *model.OutboxRecord) error {
	if err := checkID("notification", rec.ID); err != nil {
		return err
	}
	data := map[string]interface{}{
		model.FieldRecipientID: rec.RecipientID,
		model.FieldSent:        false,
		model.FieldCreatedAt:   store.ServerTimestamp,
	}
	if rec.DeviceToken != "" {
		data[model.FieldDeviceToken] = rec.DeviceToken
	}
	if rec.Title != "" {
		data[model.FieldTitle] = rec.Title
	}
	if rec.Body != "" {
		data[model.FieldBody] = rec.Body
	}
	if len(rec.Data) > 0 {
		payload := make(map[string]interface{}, len(rec.Data))
		for k, v := range rec.Data {
			payload[k] = v
		}
		data[model.FieldData] = payload
	}
	return r.store.Create(ctx, model.OutboxPath(rec.ID), data)
}

// MarkDelivered and MarkFailed write the terminal state. They report false
// when the record was already terminal and nothing was written.
func (r *OutboxRepo) MarkDelivered(ctx context.Context, id, providerResponse string) (bool, error) {
	return r.markSent(ctx, id, store.Update{Field: model.FieldProviderResponse, Value: providerResponse})
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	return r.markSent(ctx, id, store.Update{Field: model.FieldError, Value: reason})
}

func (r *OutboxRepo) markSent(ctx context.Context, id string, outcome store.Update) (bool, error) {
	if err := checkID("notification", id); err != nil {
		return false, err
	}
	applied, err := r.store.UpdateUnless(ctx, model.OutboxPath(id), model.FieldSent, []store.Update{
		{Field: model.FieldSent, Value: true},
		{Field: model.FieldSentAt, Value: store.ServerTimestamp},
		outcome,
	})
	if err != nil {
		return false, mapNotFound(err)
	}
	return applied, nil
}

// ListSentBefore returns terminal records whose sent_at is older than cutoff.
func (r *OutboxRepo) ListSentBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.OutboxRecord, error) {
	docs, err := r.store.Query(ctx, store.Query{
		Collection: model.OutboxCollection,
		Filters: []store.Filter{
			{Field: model.FieldSent, Op: store.OpEqual, Value: true},
			{Field: model.FieldSentAt, Op: store.OpLess, Value: cutoff},
		},
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.OutboxRecord, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *decodeOutbox(doc))
	}
	return out, nil
}

// WatchPending calls fn for every unsent record, existing or newly created,
// until ctx is done.
func (r *OutboxRepo) WatchPending(ctx context.Context, fn func(ctx context.Context, rec *model.OutboxRecord)) error {
	q := store.Query{
		Collection: model.OutboxCollection,
		Filters:    []store.Filter{{Field: model.FieldSent, Op: store.OpEqual, Value: false}},
	}
	return r.store.Watch(ctx, q, func(ctx context.Context, doc *store.Document) {
		fn(ctx, decodeOutbox(doc))
	})
}

func decodeOutbox(doc *store.Document) *model.OutboxRecord {
	return &model.OutboxRecord{
		ID:               doc.ID,
		RecipientID:      stringField(doc.Data, model.FieldRecipientID),
		DeviceToken:      stringField(doc.Data, model.FieldDeviceToken),
		Title:            stringField(doc.Data, model.FieldTitle),
		Body:             stringField(doc.Data, model.FieldBody),
		Data:             stringMapField(doc.Data, model.FieldData),
		Sent:             boolField(doc.Data, model.FieldSent),
		SentAt:           timeField(doc.Data, model.FieldSentAt),
		Error:            stringField(doc.Data, model.FieldError),
		ProviderResponse: stringField(doc.Data, model.FieldProviderResponse),
		CreatedAt:        timeField(doc.Data, model.FieldCreatedAt),
	}
}
