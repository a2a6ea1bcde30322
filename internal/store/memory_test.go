package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_CreateGetAndServerTimestamp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMemory(WithClock(func() time.Time { return now }))

	require.NoError(t, m.Create(ctx, "c/a", map[string]interface{}{
		"name":    "x",
		"at":      ServerTimestamp,
		"skipped": DeleteField,
		"data":    map[string]string{"k": "v"},
	}))
	require.ErrorIs(t, m.Create(ctx, "c/a", nil), ErrAlreadyExists)
	require.Error(t, m.Create(ctx, "c", nil))

	doc, err := m.Get(ctx, "c/a")
	require.NoError(t, err)
	require.Equal(t, "a", doc.ID)
	require.Equal(t, "c/a", doc.Path)
	require.Equal(t, now, doc.Data["at"])
	require.NotContains(t, doc.Data, "skipped")
	require.Equal(t, map[string]interface{}{"k": "v"}, doc.Data["data"])

	doc.Data["name"] = "mutated"
	again, err := m.Get(ctx, "c/a")
	require.NoError(t, err)
	require.Equal(t, "x", again.Data["name"])

	_, err = m.Get(ctx, "c/missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateAndDeleteField(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "profiles/u1", map[string]interface{}{"device_token": "t", "name": "n"}))

	require.NoError(t, m.Update(ctx, "profiles/u1", []Update{{Field: "device_token", Value: DeleteField}}))
	doc, err := m.Get(ctx, "profiles/u1")
	require.NoError(t, err)
	require.NotContains(t, doc.Data, "device_token")
	require.Equal(t, "n", doc.Data["name"])

	require.ErrorIs(t, m.Update(ctx, "profiles/u2", []Update{{Field: "x", Value: 1}}), ErrNotFound)
}

func TestMemory_UpdateUnless(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "q/1", map[string]interface{}{"sent": false}))

	applied, err := m.UpdateUnless(ctx, "q/1", "sent", []Update{{Field: "sent", Value: true}, {Field: "error", Value: "first"}})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = m.UpdateUnless(ctx, "q/1", "sent", []Update{{Field: "sent", Value: true}, {Field: "error", Value: "second"}})
	require.NoError(t, err)
	require.False(t, applied)

	doc, err := m.Get(ctx, "q/1")
	require.NoError(t, err)
	require.Equal(t, "first", doc.Data["error"])
	require.Equal(t, 2, m.Writes())
}

func TestMemory_QueryFiltersAndLimit(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "q/a", map[string]interface{}{"sent": true, "sent_at": base.Add(-2 * time.Hour)}))
	require.NoError(t, m.Create(ctx, "q/b", map[string]interface{}{"sent": true, "sent_at": base.Add(time.Hour)}))
	require.NoError(t, m.Create(ctx, "q/c", map[string]interface{}{"sent": false}))
	require.NoError(t, m.Create(ctx, "q/d", map[string]interface{}{"sent": true, "sent_at": base.Add(-time.Hour)}))
	require.NoError(t, m.Create(ctx, "q/a/sub/x", map[string]interface{}{"sent": true, "sent_at": base.Add(-time.Hour)}))

	docs, err := m.Query(ctx, Query{
		Collection: "q",
		Filters: []Filter{
			{Field: "sent", Op: OpEqual, Value: true},
			{Field: "sent_at", Op: OpLess, Value: base},
		},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "a", docs[0].ID)
	require.Equal(t, "d", docs[1].ID)

	docs, err = m.Query(ctx, Query{Collection: "q", Filters: []Filter{{Field: "sent", Op: OpEqual, Value: true}}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	sub, err := m.List(ctx, "q/a/sub")
	require.NoError(t, err)
	require.Len(t, sub, 1)
	require.Equal(t, "q/a/sub/x", sub[0].Path)
}

func TestMemory_WatchDeliversExistingAndNew(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Create(ctx, "q/old", map[string]interface{}{"sent": false}))
	require.NoError(t, m.Create(ctx, "q/done", map[string]interface{}{"sent": true}))

	var mu sync.Mutex
	var seen []string
	got := make(chan struct{}, 4)
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Watch(ctx, Query{Collection: "q", Filters: []Filter{{Field: "sent", Op: OpEqual, Value: false}}}, func(_ context.Context, doc *Document) {
			mu.Lock()
			seen = append(seen, doc.ID)
			mu.Unlock()
			got <- struct{}{}
		})
	}()

	<-got
	require.NoError(t, m.Create(ctx, "q/new", map[string]interface{}{"sent": false}))
	<-got

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"old", "new"}, seen)
}
