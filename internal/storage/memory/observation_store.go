package memory

import (
	"context"
	"sync"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu  sync.RWMutex
	obs []*domain.PriceObservation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{}
}

// InsertBulk appends multiple observations.
func (s *ObservationStore) InsertBulk(_ context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		if o == nil || o.Mint == "" {
			return storage.ErrInvalidInput
		}
		copy := *o
		s.obs = append(s.obs, &copy)
	}
	return nil
}

// All returns a snapshot of recorded observations, oldest first.
func (s *ObservationStore) All() []*domain.PriceObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PriceObservation, 0, len(s.obs))
	for _, o := range s.obs {
		copy := *o
		result = append(result, &copy)
	}
	return result
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
