package postgres

import (
	"context"
	"fmt"

	"solana-migration-bot/internal/storage"
)

// ProcessedStore implements storage.ProcessedStore using PostgreSQL.
// Uniqueness is enforced by the primary key on event_id, so concurrent
// writers agree on who saw an event first.
type ProcessedStore struct {
	pool *Pool
}

// NewProcessedStore creates a new ProcessedStore.
func NewProcessedStore(pool *Pool) *ProcessedStore {
	return &ProcessedStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProcessedStore = (*ProcessedStore)(nil)

// MarkProcessed records an identifier. Returns ErrDuplicateKey if already recorded.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, id string, detectedAt int64) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO processed_events (event_id, detected_at)
		VALUES ($1, $2)
	`

	_, err := s.pool.Exec(ctx, query, id, detectedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// IsProcessed reports whether the identifier has been recorded.
func (s *ProcessedStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check processed: %w", err)
	}
	return exists, nil
}

// Count returns the number of recorded identifiers.
func (s *ProcessedStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM processed_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count processed: %w", err)
	}
	return count, nil
}
