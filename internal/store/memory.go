package store

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store. It keeps the same contract as the Firestore
// backend and is used for local runs and tests.
type Memory struct {
	mu       sync.Mutex
	now      func() time.Time
	docs     map[string]map[string]interface{}
	watchers map[int]*watcher
	nextID   int
	hooks    MemoryHooks
	writes   int
	commits  []int
}

// MemoryHooks let callers inject failures.
type MemoryHooks struct {
	BeforeList   func(collectionPath string) error
	BeforeCommit func(ops int) error
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

type watcher struct {
	query Query
	ch    chan *Document
	done  chan struct{}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:      time.Now,
		docs:     make(map[string]map[string]interface{}),
		watchers: make(map[int]*watcher),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) SetHooks(h MemoryHooks) {
	m.mu.Lock()
	m.hooks = h
	m.mu.Unlock()
}

// Writes returns how many mutating calls reached the store.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Commits returns the op count of every successful batch commit, in order.
func (m *Memory) Commits() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.commits...)
}

// Len returns the number of documents directly under collectionPath.
func (m *Memory) Len(collectionPath string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for p := range m.docs {
		if path.Dir(p) == collectionPath {
			n++
		}
	}
	return n
}

func (m *Memory) Get(ctx context.Context, p string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[p]
	if !ok {
		return nil, ErrNotFound
	}
	return newDocument(p, data), nil
}

func (m *Memory) Create(ctx context.Context, p string, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateDocPath(p); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.docs[p]; ok {
		m.mu.Unlock()
		return ErrAlreadyExists
	}
	stored := make(map[string]interface{}, len(data))
	now := m.now()
	for k, v := range data {
		switch v {
		case ServerTimestamp:
			stored[k] = now
		case DeleteField:
		default:
			stored[k] = cloneValue(v)
		}
	}
	m.docs[p] = stored
	m.writes++
	doc := newDocument(p, stored)
	var targets []*watcher
	for _, w := range m.watchers {
		if matches(w.query, p, stored) {
			targets = append(targets, w)
		}
	}
	m.mu.Unlock()

	for _, w := range targets {
		select {
		case w.ch <- doc:
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) Update(ctx context.Context, p string, updates []Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[p]
	if !ok {
		return ErrNotFound
	}
	m.applyLocked(data, updates)
	m.writes++
	return nil
}

func (m *Memory) UpdateUnless(ctx context.Context, p, guard string, updates []Update) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[p]
	if !ok {
		return false, ErrNotFound
	}
	if set, _ := data[guard].(bool); set {
		return false, nil
	}
	m.applyLocked(data, updates)
	m.writes++
	return true, nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryLocked(q), nil
}

func (m *Memory) List(ctx context.Context, collectionPath string) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	hook := m.hooks.BeforeList
	m.mu.Unlock()
	if hook != nil {
		if err := hook(collectionPath); err != nil {
			return nil, err
		}
	}
	return m.Query(ctx, Query{Collection: collectionPath})
}

func (m *Memory) Watch(ctx context.Context, q Query, fn func(ctx context.Context, doc *Document)) error {
	w := &watcher{query: q, ch: make(chan *Document, 64), done: make(chan struct{})}
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = w
	existing := m.queryLocked(q)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
		close(w.done)
	}()

	for _, doc := range existing {
		fn(ctx, doc)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc := <-w.ch:
			fn(ctx, doc)
		}
	}
}

func (m *Memory) NewBatch() Batch {
	return &memoryBatch{store: m}
}

func (m *Memory) queryLocked(q Query) []*Document {
	var out []*Document
	for p, data := range m.docs {
		if matches(q, p, data) {
			out = append(out, newDocument(p, data))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (m *Memory) applyLocked(data map[string]interface{}, updates []Update) {
	now := m.now()
	for _, u := range updates {
		switch u.Value {
		case ServerTimestamp:
			data[u.Field] = now
		case DeleteField:
			delete(data, u.Field)
		default:
			data[u.Field] = cloneValue(u.Value)
		}
	}
}

type memoryBatch struct {
	store *Memory
	paths []string
}

func (b *memoryBatch) Delete(p string) {
	b.paths = append(b.paths, p)
}

func (b *memoryBatch) Len() int {
	return len(b.paths)
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(b.paths) > MaxBatchOps {
		return fmt.Errorf("batch of %d ops exceeds limit %d", len(b.paths), MaxBatchOps)
	}
	m := b.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hooks.BeforeCommit != nil {
		if err := m.hooks.BeforeCommit(len(b.paths)); err != nil {
			return err
		}
	}
	for _, p := range b.paths {
		delete(m.docs, p)
	}
	m.writes += len(b.paths)
	m.commits = append(m.commits, len(b.paths))
	return nil
}

func validateDocPath(p string) error {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 || len(parts)%2 != 0 {
		return fmt.Errorf("invalid document path %q", p)
	}
	return nil
}

func matches(q Query, p string, data map[string]interface{}) bool {
	if path.Dir(p) != q.Collection {
		return false
	}
	for _, f := range q.Filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if c, ok := compare(v, f.Value); !ok || c != 0 {
				return false
			}
		case OpLess:
			if c, ok := compare(v, f.Value); !ok || c >= 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compare orders two values of the same kind. ok is false when they cannot
// be compared, which matches no filter.
func compare(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func newDocument(p string, data map[string]interface{}) *Document {
	cp := make(map[string]interface{}, len(data))
	for k, v := range data {
		cp[k] = cloneValue(v)
	}
	return &Document{ID: path.Base(p), Path: p, Data: cp}
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(t))
		for k, val := range t {
			cp[k] = cloneValue(val)
		}
		return cp
	case map[string]string:
		cp := make(map[string]interface{}, len(t))
		for k, val := range t {
			cp[k] = val
		}
		return cp
	}
	return v
}
