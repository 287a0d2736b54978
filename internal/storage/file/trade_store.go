package file

import (
	"context"
	"fmt"
	"sync"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/storage"
)

// TradeStore is a JSON file-backed implementation of
// storage.TradeStore. The trade log is append-only in memory and
// rewritten whole on every insert.
type TradeStore struct {
	mu     sync.RWMutex
	path   string
	trades []*domain.CompletedTrade
}

// NewTradeStore opens or creates the store at path.
func NewTradeStore(path string) (*TradeStore, error) {
	s := &TradeStore{path: path}
	if _, err := readJSON(path, &s.trades); err != nil {
		return nil, fmt.Errorf("load trade store: %w", err)
	}
	return s, nil
}

// Insert appends a completed trade and persists.
func (s *TradeStore) Insert(_ context.Context, t *domain.CompletedTrade) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *t
	s.trades = append(s.trades, &copy)

	if err := writeAtomic(s.path, s.trades); err != nil {
		s.trades = s.trades[:len(s.trades)-1]
		return err
	}
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
