package file

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/storage"
)

// PositionStore is a JSON file-backed implementation of
// storage.PositionStore. Open positions are rewritten on every save
// so a crashed process can inspect what it was holding.
type PositionStore struct {
	mu   sync.RWMutex
	path string
	data map[string]*domain.Position // keyed by mint
}

// NewPositionStore opens or creates the store at path.
func NewPositionStore(path string) (*PositionStore, error) {
	s := &PositionStore{
		path: path,
		data: make(map[string]*domain.Position),
	}
	if _, err := readJSON(path, &s.data); err != nil {
		return nil, fmt.Errorf("load position store: %w", err)
	}
	return s, nil
}

// Save inserts or replaces the position for its mint and persists.
func (s *PositionStore) Save(_ context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.data[p.Mint]
	copy := *p
	s.data[p.Mint] = &copy

	if err := writeAtomic(s.path, s.data); err != nil {
		if hadPrev {
			s.data[p.Mint] = prev
		} else {
			delete(s.data, p.Mint)
		}
		return err
	}
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

// Delete removes the position for a mint and persists.
func (s *PositionStore) Delete(_ context.Context, mint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.data[mint]
	if !hadPrev {
		return nil
	}
	delete(s.data, mint)

	if err := writeAtomic(s.path, s.data); err != nil {
		s.data[mint] = prev
		return err
	}
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
