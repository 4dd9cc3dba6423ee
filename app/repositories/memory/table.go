// Package memory provides in-process stores with the same behaviour as the
// MongoDB repositories. They back the test suites and local runs without a
// database. Filters use the same bson.M shape the list queries produce.
package memory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/studio/app/repositories"
	"github.com/shashiranjanraj/studio/pkg/query"
)

// table stores documents of type T keyed by ObjectID. Documents are deep
// copied through BSON on the way in and out so callers never share state
// with the store.
type table[T any] struct {
	mu    sync.RWMutex
	docs  map[primitive.ObjectID]T
	order []primitive.ObjectID

	idOf  func(*T) primitive.ObjectID
	setID func(*T, primitive.ObjectID)
	text  []string
}

func newTable[T any](idOf func(*T) primitive.ObjectID, setID func(*T, primitive.ObjectID), textFields ...string) *table[T] {
	return &table[T]{
		docs:  map[primitive.ObjectID]T{},
		idOf:  idOf,
		setID: setID,
		text:  textFields,
	}
}

func clone[T any](in *T) (*T, error) {
	raw, err := bson.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *table[T]) insert(doc *T) error {
	if t.idOf(doc).IsZero() {
		t.setID(doc, primitive.NewObjectID())
	}
	cp, err := clone(doc)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.idOf(cp)
	if _, exists := t.docs[id]; exists {
		return repositories.ErrDuplicate
	}
	t.docs[id] = *cp
	t.order = append(t.order, id)
	return nil
}

func (t *table[T]) get(id primitive.ObjectID) (*T, error) {
	t.mu.RLock()
	doc, ok := t.docs[id]
	t.mu.RUnlock()
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return clone(&doc)
}

func (t *table[T]) replace(doc *T) error {
	cp, err := clone(doc)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.idOf(cp)
	if _, ok := t.docs[id]; !ok {
		return repositories.ErrNotFound
	}
	t.docs[id] = *cp
	return nil
}

// modify applies fn to the stored document under the write lock. fn may
// return an error to abort without writing.
func (t *table[T]) modify(id primitive.ObjectID, fn func(*T) error) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, ok := t.docs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if err := fn(&doc); err != nil {
		return nil, err
	}
	t.docs[id] = doc
	return clone(&doc)
}

func (t *table[T]) delete(id primitive.ObjectID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.docs[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(t.docs, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

type row[T any] struct {
	doc T
	m   bson.M
}

// match returns every document satisfying filter in insertion order.
func (t *table[T]) match(filter bson.M) ([]row[T], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []row[T]
	for _, id := range t.order {
		doc := t.docs[id]
		m, err := toMap(&doc)
		if err != nil {
			return nil, err
		}
		if matches(m, filter, t.text) {
			out = append(out, row[T]{doc: doc, m: m})
		}
	}
	return out, nil
}

func (t *table[T]) findOne(filter bson.M) (*T, error) {
	rows, err := t.match(filter)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repositories.ErrNotFound
	}
	return clone(&rows[0].doc)
}

// find returns all matches ordered by sortBy.
func (t *table[T]) find(filter bson.M, sortBy bson.D) ([]T, error) {
	rows, err := t.match(filter)
	if err != nil {
		return nil, err
	}
	sortRows(rows, sortBy)
	return collect(rows)
}

func (t *table[T]) list(_ context.Context, q query.Query) ([]T, int64, error) {
	rows, err := t.match(q.Filter)
	if err != nil {
		return nil, 0, err
	}
	sortRows(rows, q.Sort)

	total := int64(len(rows))
	start := int(q.Skip())
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	docs, err := collect(rows[start:end])
	return docs, total, err
}

func collect[T any](rows []row[T]) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i := range rows {
		cp, err := clone(&rows[i].doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *cp)
	}
	return out, nil
}

func sortRows[T any](rows []row[T], by bson.D) {
	if len(by) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, e := range by {
			c := compare(lookup(rows[i].m, e.Key), lookup(rows[j].m, e.Key))
			if c == 0 {
				continue
			}
			if dir, _ := e.Value.(int); dir < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
