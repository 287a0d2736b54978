package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a completed trade.
func (s *TradeStore) Insert(ctx context.Context, t *domain.CompletedTrade) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO completed_trades (
			mint, entry_price, exit_price, amount,
			profit_loss_ratio, outcome,
			entry_time, exit_time, entry_tx_id, exit_tx_id
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.Mint, t.EntryPrice, t.ExitPrice, t.Amount,
		t.ProfitLossRatio, t.Outcome,
		t.EntryTime, t.ExitTime, t.EntryTxID, t.ExitTxID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert completed trade: %w", err)
	}
	return nil
}

// GetByMint retrieves all completed trades for a mint, oldest first.
func (s *TradeStore) GetByMint(ctx context.Context, mint string) ([]*domain.CompletedTrade, error) {
	query := `
		SELECT
			mint, entry_price, exit_price, amount,
			profit_loss_ratio, outcome,
			entry_time, exit_time, entry_tx_id, exit_tx_id
		FROM completed_trades
		WHERE mint = $1
		ORDER BY exit_time ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get completed trades by mint: %w", err)
	}
	defer rows.Close()

	return scanCompletedTrades(rows)
}

// List retrieves all completed trades, oldest first.
func (s *TradeStore) List(ctx context.Context) ([]*domain.CompletedTrade, error) {
	query := `
		SELECT
			mint, entry_price, exit_price, amount,
			profit_loss_ratio, outcome,
			entry_time, exit_time, entry_tx_id, exit_tx_id
		FROM completed_trades
		ORDER BY exit_time ASC, mint ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list completed trades: %w", err)
	}
	defer rows.Close()

	return scanCompletedTrades(rows)
}

// scanCompletedTrades scans multiple rows into a slice of CompletedTrade.
func scanCompletedTrades(rows pgx.Rows) ([]*domain.CompletedTrade, error) {
	var trades []*domain.CompletedTrade

	for rows.Next() {
		var t domain.CompletedTrade

		err := rows.Scan(
			&t.Mint, &t.EntryPrice, &t.ExitPrice, &t.Amount,
			&t.ProfitLossRatio, &t.Outcome,
			&t.EntryTime, &t.ExitTime, &t.EntryTxID, &t.ExitTxID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan completed trade row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed trade rows: %w", err)
	}

	return trades, nil
}
