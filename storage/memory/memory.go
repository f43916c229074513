// Package memory provides a thread-safe in-memory implementation of storage.Store.
package memory

import (
	"maps"
	"sync"

	"github.com/jmcleod/jobboard/storage"
)

// Store is a thread-safe in-memory implementation of storage.Store.
// Suitable for testing, demos, and single-process use cases. Values are
// lost when the process exits.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a new empty in-memory Store.
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Batch executes fn within a batch transaction. On error, all writes are rolled back.
func (s *Store) Batch(fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := maps.Clone(s.data)

	if err := fn(&memoryTx{data: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

type memoryTx struct {
	data map[string]string
}

func (tx *memoryTx) Set(key, value string) error {
	tx.data[key] = value
	return nil
}

func (tx *memoryTx) Remove(key string) error {
	delete(tx.data, key)
	return nil
}
