package store

import (
	"strings"
	"sync"
)

// Store is the durable key-value capability every engine component reads and
// writes through. Operations are synchronous and last-write-wins: there are
// no transactions, and concurrent read-modify-write sequences are not
// serialized. That matches the shared per-origin storage the engine models.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) ([]byte, bool)
	// Set stores the value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes the key. Deleting an absent key is a no-op.
	Delete(key string)
	// Keys lists every key with the given prefix, in no particular order.
	Keys(prefix string) []string
}

// MemoryStore is an in-process Store used by tests and single-process
// embeddings. The mutex protects map integrity only; it does not make
// read-modify-write sequences atomic.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, false
	}
	// Copy so callers cannot mutate stored bytes
	out := make([]byte, len(value))
	copy(out, value)
	return out, true
}

func (s *MemoryStore) Set(key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = stored
	return nil
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

func (s *MemoryStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Count returns the number of stored keys
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
