package memory

import (
	"context"
	"sort"
	"sync"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by mint
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

// Save inserts or replaces the position for its mint.
func (s *PositionStore) Save(_ context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *p
	s.data[p.Mint] = &copy
	return nil
}

// Get retrieves the position for a mint. Returns ErrNotFound if none.
func (s *PositionStore) Get(_ context.Context, mint string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// Delete removes the position for a mint.
func (s *PositionStore) Delete(_ context.Context, mint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, mint)
	return nil
}

// List returns all open positions ordered by mint.
func (s *PositionStore) List(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Position, 0, len(s.data))
	for _, p := range s.data {
		copy := *p
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Mint < result[j].Mint
	})

	return result, nil
}

var _ storage.PositionStore = (*PositionStore)(nil)
