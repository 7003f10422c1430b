package flow

import "sync"

// Store is a key-value blob store used to materialize task outputs. The bolt
// and leveldb implementations live in subpackages; MemStore here backs tests
// and store-less experimentation.
type Store interface {
	Get(key string) (val []byte, ok bool, err error)
	Put(key string, val []byte) error
	Close() error
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string][]byte)}
}

// Get returns the blob stored under key, if any.
func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.m[key]
	return val, ok, nil
}

// Put stores a blob under key.
func (s *MemStore) Put(key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(val))
	copy(cp, val)
	s.m[key] = cp
	return nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }

// Len returns the number of stored entries.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
