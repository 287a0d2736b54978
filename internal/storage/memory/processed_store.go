package memory

import (
	"context"
	"sync"

	"solana-migration-bot/internal/storage"
)

// ProcessedStore is an in-memory implementation of storage.ProcessedStore.
type ProcessedStore struct {
	mu   sync.RWMutex
	data map[string]int64 // id -> detection timestamp (unix ms)
}

// NewProcessedStore creates a new in-memory processed-event store.
func NewProcessedStore() *ProcessedStore {
	return &ProcessedStore{
		data: make(map[string]int64),
	}
}

// MarkProcessed records an identifier. Returns ErrDuplicateKey if already recorded.
func (s *ProcessedStore) MarkProcessed(_ context.Context, id string, detectedAt int64) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[id] = detectedAt
	return nil
}

// IsProcessed reports whether the identifier has been recorded.
func (s *ProcessedStore) IsProcessed(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[id]
	return exists, nil
}

// Count returns the number of recorded identifiers.
func (s *ProcessedStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data), nil
}

var _ storage.ProcessedStore = (*ProcessedStore)(nil)
