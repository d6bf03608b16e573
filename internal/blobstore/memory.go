package blobstore

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an in-memory store intended for local development and tests.
func NewMemoryStore() Store {
	return &memoryStore{blobs: make(map[string][]byte)}
}

func (s *memoryStore) Put(_ context.Context, data []byte) (string, error) {
	id := newID()

	copied := make([]byte, len(data))
	copy(copied, data)

	s.mu.Lock()
	s.blobs[id] = copied
	s.mu.Unlock()
	return id, nil
}

func (s *memoryStore) Get(_ context.Context, id string) ([]byte, bool, error) {
	s.mu.RLock()
	data, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, true, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.blobs, id)
	s.mu.Unlock()
	return nil
}
