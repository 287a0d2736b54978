package file

import (
	"context"
	"fmt"
	"sync"

	"solana-migration-bot/internal/storage"
)

// ProcessedStore is a JSON file-backed implementation of
// storage.ProcessedStore. The full identifier set is loaded at
// startup and rewritten on every new identifier, so already-handled
// events survive a restart.
type ProcessedStore struct {
	mu   sync.RWMutex
	path string
	data map[string]int64 // id -> detection timestamp (unix ms)
}

// NewProcessedStore opens or creates the store at path.
func NewProcessedStore(path string) (*ProcessedStore, error) {
	s := &ProcessedStore{
		path: path,
		data: make(map[string]int64),
	}
	if _, err := readJSON(path, &s.data); err != nil {
		return nil, fmt.Errorf("load processed store: %w", err)
	}
	return s, nil
}

// MarkProcessed records an identifier and persists the store.
// Returns ErrDuplicateKey if already recorded.
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

	// The in-memory set stays authoritative when the rewrite fails:
	// the identifier is kept and the next insert, which rewrites the
	// whole document, persists it too.
	if err := writeAtomic(s.path, s.data); err != nil {
		return fmt.Errorf("persist processed store: %w", err)
	}
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
