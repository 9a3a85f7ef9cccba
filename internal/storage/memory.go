package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps todo lists in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]string)}
}

func (s *MemoryStore) Get(ctx context.Context, senderID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.lists[senderID]...), nil
}

func (s *MemoryStore) Put(ctx context.Context, senderID string, items []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[senderID] = append([]string{}, items...)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
