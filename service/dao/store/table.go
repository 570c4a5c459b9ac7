package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/oomadj/service/dao"
)

// Table is a generic in-memory implementation of dao.Service that keeps its
// entities ordered. New entities are appended; Touch moves an entity to the
// end, so the order doubles as a least-recently-used list.
type Table[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	order       []K
	keySelector func(*T) K
	allowZero   bool
}

// Option configures a Table.
type Option[K comparable, T any] func(t *Table[K, T])

// WithZeroKey accepts the zero value of K as a key.
func WithZeroKey[K comparable, T any]() Option[K, T] {
	return func(t *Table[K, T]) {
		t.allowZero = true
	}
}

// NewTable creates a table. keySelector extracts the entity key.
func NewTable[K comparable, T any](keySelector func(*T) K, options ...Option[K, T]) *Table[K, T] {
	ret := &Table[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

func (s *Table[K, T]) key(v *T) (K, error) {
	key := s.keySelector(v)
	var zero K
	if key == zero && !s.allowZero {
		return key, fmt.Errorf("%w: %v", dao.ErrInvalidID, key)
	}
	return key, nil
}

// Save stores or overwrites a record. An overwritten record keeps its position.
func (s *Table[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key, err := s.key(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = v
	return nil
}

// Insert stores a new record and fails when the key is taken.
func (s *Table[K, T]) Insert(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key, err := s.key(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return fmt.Errorf("%w: %v", dao.ErrDuplicate, key)
	}
	s.records[key] = v
	s.order = append(s.order, key)
	return nil
}

// Load returns a record by key.
func (s *Table[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", dao.ErrNotFound, key)
	}
	return v, nil
}

// Get is Load without the error.
func (s *Table[K, T]) Get(key K) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	return v, ok
}

// Delete removes a record.
func (s *Table[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("%w: %v", dao.ErrNotFound, key)
	}
	delete(s.records, key)
	s.order = removeKey(s.order, key)
	return nil
}

// Touch moves a record to the end of the order.
func (s *Table[K, T]) Touch(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return false
	}
	s.order = append(removeKey(s.order, key), key)
	return true
}

// List returns the records accepted by every filter, in table order.
func (s *Table[K, T]) List(_ context.Context, filters ...dao.Filter[T]) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.order))
outer:
	for _, key := range s.order {
		v := s.records[key]
		for _, filter := range filters {
			if !filter(v) {
				continue outer
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Values returns every record in table order.
func (s *Table[K, T]) Values() []*T {
	ret, _ := s.List(context.Background())
	return ret
}

// Keys returns every key in table order.
func (s *Table[K, T]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]K(nil), s.order...)
}

func (s *Table[K, T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func removeKey[K comparable](keys []K, key K) []K {
	for i, candidate := range keys {
		if candidate == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

var _ dao.Service[int, struct{}] = (*Table[int, struct{}])(nil)
