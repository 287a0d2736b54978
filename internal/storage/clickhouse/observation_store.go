package clickhouse

import (
	"context"
	"fmt"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/storage"
)

// ObservationStore implements storage.ObservationStore using
// ClickHouse. Observations are append-only monitoring samples, so the
// table is a plain MergeTree and no duplicate checks are made.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk appends multiple price observations.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	for _, o := range obs {
		if o == nil || o.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_observations (
			mint, timestamp_ms, price, profit_loss_ratio
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.Mint, uint64(o.TimestampMs), o.Price, o.ProfitLossRatio,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all observations for a mint, ordered by timestamp ASC.
func (s *ObservationStore) GetByMint(ctx context.Context, mint string) ([]*domain.PriceObservation, error) {
	query := `
		SELECT mint, timestamp_ms, price, profit_loss_ratio
		FROM price_observations
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query observations by mint: %w", err)
	}
	defer rows.Close()

	var obs []*domain.PriceObservation
	for rows.Next() {
		var o domain.PriceObservation
		var timestampMs uint64

		if err := rows.Scan(&o.Mint, &timestampMs, &o.Price, &o.ProfitLossRatio); err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		o.TimestampMs = int64(timestampMs)
		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return obs, nil
}
