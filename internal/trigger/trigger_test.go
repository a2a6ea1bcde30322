package trigger

import (
	"context"
	"sort"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/repo"
	"github.com/xxxsen/imtahan-notifier/internal/store"
)

func TestStoreSource_DeliversPendingRecords(t *testing.T) {
	mem := store.NewMemory()
	outbox := repo.NewOutboxRepo(mem)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, outbox.Create(ctx, &model.OutboxRecord{ID: "before", RecipientID: "u1"}))
	require.NoError(t, mem.Create(ctx, model.OutboxPath("done"), map[string]interface{}{
		model.FieldRecipientID: "u1",
		model.FieldSent:        true,
	}))
	require.NoError(t, outbox.Create(ctx, &model.OutboxRecord{ID: "boom", RecipientID: "u1"}))

	seen := make(chan string, 8)
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewStoreSource(outbox).Run(ctx, func(_ context.Context, rec *model.OutboxRecord) {
			if rec.ID == "boom" {
				panic("bad record")
			}
			seen <- rec.ID
		})
	}()

	require.Equal(t, "before", waitID(t, seen))
	require.NoError(t, outbox.Create(ctx, &model.OutboxRecord{ID: "after", RecipientID: "u2"}))
	require.Equal(t, "after", waitID(t, seen))

	cancel()
	require.NoError(t, <-errCh)
	require.Empty(t, seen)
}

func waitID(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification event")
		return ""
	}
}

func TestEventID(t *testing.T) {
	tests := []struct {
		name    string
		msg     *pubsub.Message
		want    string
		wantErr bool
	}{
		{name: "attribute", msg: &pubsub.Message{Attributes: map[string]string{"id": "n1"}}, want: "n1"},
		{name: "json body", msg: &pubsub.Message{Data: []byte(`{"id":"n2"}`)}, want: "n2"},
		{name: "empty id", msg: &pubsub.Message{Data: []byte(`{}`)}, wantErr: true},
		{name: "garbage", msg: &pubsub.Message{Data: []byte(`not json`)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eventID(tt.msg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestInflight_RecoversAndWaits(t *testing.T) {
	var running inflight
	ids := make(chan string, 3)
	h := func(_ context.Context, rec *model.OutboxRecord) {
		if rec.ID == "panic" {
			panic("boom")
		}
		ids <- rec.ID
	}
	for _, id := range []string{"a", "panic", "b"} {
		running.spawn(context.Background(), h, &model.OutboxRecord{ID: id})
	}
	running.wait()
	close(ids)

	var got []string
	for id := range ids {
		got = append(got, id)
	}
	sort.Strings(got)
	require.Equal(t, []string{"a", "b"}, got)
}
