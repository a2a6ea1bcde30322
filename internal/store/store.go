package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
)

// MaxBatchOps is the largest number of writes one atomic batch may carry.
const MaxBatchOps = 500

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

type Op string

const (
	OpEqual Op = "=="
	OpLess  Op = "<"
)

type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

type Query struct {
	Collection string
	Filters    []Filter
	Limit      int
}

type Document struct {
	ID   string
	Path string
	Data map[string]interface{}
}

// FieldValue values are placeholders resolved by the backend at write time.
type FieldValue int

const (
	ServerTimestamp FieldValue = iota + 1
	DeleteField
)

type Update struct {
	Field string
	Value interface{}
}

type Store interface {
	Get(ctx context.Context, path string) (*Document, error)
	Create(ctx context.Context, path string, data map[string]interface{}) error
	Update(ctx context.Context, path string, updates []Update) error
	// UpdateUnless applies updates atomically unless the boolean field guard
	// is already true. It reports whether the updates were applied.
	UpdateUnless(ctx context.Context, path, guard string, updates []Update) (bool, error)
	Query(ctx context.Context, q Query) ([]*Document, error)
	List(ctx context.Context, collectionPath string) ([]*Document, error)
	// Watch calls fn for every document matching q that exists when the
	// watch starts or is created afterwards. It blocks until ctx is done.
	Watch(ctx context.Context, q Query, fn func(ctx context.Context, doc *Document)) error
	NewBatch() Batch
}

type Batch interface {
	Delete(path string)
	Len() int
	Commit(ctx context.Context) error
}

func New(ctx context.Context, typ string, app *firebase.App) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "memory":
		return NewMemory(), nil
	case "firestore":
		if app == nil {
			return nil, fmt.Errorf("firestore store requires a firebase app")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("init firestore client: %w", err)
		}
		return NewFirestore(client), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", typ)
	}
}
