package storage

import (
	"context"

	"solana-migration-bot/internal/domain"
)

// ProcessedStore tracks identifiers (transaction signatures or mints) that
// have already been acted upon, so a reconnect replay or restart never
// triggers a second trade.
type ProcessedStore interface {
	// MarkProcessed records an identifier with its detection timestamp
	// (unix ms). Returns ErrDuplicateKey if already recorded.
	MarkProcessed(ctx context.Context, id string, detectedAt int64) error

	// IsProcessed reports whether the identifier has been recorded.
	IsProcessed(ctx context.Context, id string) (bool, error)

	// Count returns the number of recorded identifiers.
	Count(ctx context.Context) (int, error)
}

// PositionStore persists open positions so a crash does not lose track of
// held tokens.
type PositionStore interface {
	// Save inserts or replaces the position for its mint.
	Save(ctx context.Context, p *domain.Position) error

	// Get retrieves the position for a mint. Returns ErrNotFound if none.
	Get(ctx context.Context, mint string) (*domain.Position, error)

	// Delete removes the position for a mint. Missing mints are not an error.
	Delete(ctx context.Context, mint string) error

	// List returns all open positions.
	List(ctx context.Context) ([]*domain.Position, error)
}

// TradeStore records completed trades.
type TradeStore interface {
	// Insert appends a completed trade.
	Insert(ctx context.Context, t *domain.CompletedTrade) error

	// GetByMint retrieves all completed trades for a mint, oldest first.
	GetByMint(ctx context.Context, mint string) ([]*domain.CompletedTrade, error)

	// List returns all completed trades, oldest first.
	List(ctx context.Context) ([]*domain.CompletedTrade, error)
}

// ObservationStore records per-tick price observations for open positions.
type ObservationStore interface {
	// InsertBulk appends multiple observations.
	InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error
}
