package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) doc(p string) (*firestore.DocumentRef, error) {
	ref := f.client.Doc(p)
	if ref == nil {
		return nil, fmt.Errorf("invalid document path %q", p)
	}
	return ref, nil
}

func (f *Firestore) collection(p string) (*firestore.CollectionRef, error) {
	ref := f.client.Collection(p)
	if ref == nil {
		return nil, fmt.Errorf("invalid collection path %q", p)
	}
	return ref, nil
}

func (f *Firestore) Get(ctx context.Context, p string) (*Document, error) {
	ref, err := f.doc(p)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return fromSnapshot(snap), nil
}

func (f *Firestore) Create(ctx context.Context, p string, data map[string]interface{}) error {
	ref, err := f.doc(p)
	if err != nil {
		return err
	}
	values := make(map[string]interface{}, len(data))
	for k, v := range data {
		if v == DeleteField {
			continue
		}
		values[k] = toFirestoreValue(v)
	}
	_, err = ref.Create(ctx, values)
	return mapError(err)
}

func (f *Firestore) Update(ctx context.Context, p string, updates []Update) error {
	ref, err := f.doc(p)
	if err != nil {
		return err
	}
	_, err = ref.Update(ctx, toFirestoreUpdates(updates))
	return mapError(err)
}

func (f *Firestore) UpdateUnless(ctx context.Context, p, guard string, updates []Update) (bool, error) {
	ref, err := f.doc(p)
	if err != nil {
		return false, err
	}
	var applied bool
	err = f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		applied = false
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if set, _ := snap.Data()[guard].(bool); set {
			return nil
		}
		applied = true
		return tx.Update(ref, toFirestoreUpdates(updates))
	})
	if err != nil {
		return false, mapError(err)
	}
	return applied, nil
}

func (f *Firestore) query(q Query) (firestore.Query, error) {
	col, err := f.collection(q.Collection)
	if err != nil {
		return firestore.Query{}, err
	}
	query := col.Query
	for _, filter := range q.Filters {
		query = query.Where(filter.Field, string(filter.Op), filter.Value)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query, nil
}

func (f *Firestore) Query(ctx context.Context, q Query) ([]*Document, error) {
	query, err := f.query(q)
	if err != nil {
		return nil, err
	}
	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(err)
	}
	return fromSnapshots(snaps), nil
}

func (f *Firestore) List(ctx context.Context, collectionPath string) ([]*Document, error) {
	return f.Query(ctx, Query{Collection: collectionPath})
}

func (f *Firestore) Watch(ctx context.Context, q Query, fn func(ctx context.Context, doc *Document)) error {
	query, err := f.query(q)
	if err != nil {
		return err
	}
	it := query.Snapshots(ctx)
	defer it.Stop()
	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return ctx.Err()
			}
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return mapError(err)
		}
		for _, change := range qs.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			fn(ctx, fromSnapshot(change.Doc))
		}
	}
}

func (f *Firestore) NewBatch() Batch {
	return &firestoreBatch{client: f.client, batch: f.client.Batch()}
}

type firestoreBatch struct {
	client *firestore.Client
	batch  *firestore.WriteBatch
	n      int
}

func (b *firestoreBatch) Delete(p string) {
	b.batch.Delete(b.client.Doc(p))
	b.n++
}

func (b *firestoreBatch) Len() int {
	return b.n
}

func (b *firestoreBatch) Commit(ctx context.Context) error {
	if b.n == 0 {
		return nil
	}
	_, err := b.batch.Commit(ctx)
	return mapError(err)
}

func toFirestoreValue(v interface{}) interface{} {
	switch v {
	case ServerTimestamp:
		return firestore.ServerTimestamp
	case DeleteField:
		return firestore.Delete
	}
	return v
}

func toFirestoreUpdates(updates []Update) []firestore.Update {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		out = append(out, firestore.Update{Path: u.Field, Value: toFirestoreValue(u.Value)})
	}
	return out
}

func fromSnapshot(snap *firestore.DocumentSnapshot) *Document {
	return &Document{ID: snap.Ref.ID, Path: relativePath(snap.Ref), Data: snap.Data()}
}

// relativePath drops the projects/.../documents prefix from a ref path.
func relativePath(ref *firestore.DocumentRef) string {
	p := ref.Parent.ID + "/" + ref.ID
	if ref.Parent.Parent != nil {
		p = relativePath(ref.Parent.Parent) + "/" + p
	}
	return p
}

func fromSnapshots(snaps []*firestore.DocumentSnapshot) []*Document {
	out := make([]*Document, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, fromSnapshot(snap))
	}
	return out
}

func mapError(err error) error {
	switch status.Code(err) {
	case codes.OK:
		return err
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return err
}
