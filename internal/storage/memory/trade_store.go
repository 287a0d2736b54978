package memory

import (
	"context"
	"sync"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
// Trades are kept in insertion order.
type TradeStore struct {
	mu     sync.RWMutex
	trades []*domain.CompletedTrade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{}
}

// Insert appends a completed trade.
func (s *TradeStore) Insert(_ context.Context, t *domain.CompletedTrade) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *t
	s.trades = append(s.trades, &copy)
	return nil
}

// GetByMint retrieves all completed trades for a mint, oldest first.
func (s *TradeStore) GetByMint(_ context.Context, mint string) ([]*domain.CompletedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CompletedTrade
	for _, t := range s.trades {
		if t.Mint == mint {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

// List returns all completed trades, oldest first.
func (s *TradeStore) List(_ context.Context) ([]*domain.CompletedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CompletedTrade, 0, len(s.trades))
	for _, t := range s.trades {
		copy := *t
		result = append(result, &copy)
	}
	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
