// Package gateway executes trades against the migration AMM and
// serves spot prices from its pool reserves.
package gateway

import (
	"context"
	"errors"
)

// Gateway errors.
var (
	// ErrPriceUnavailable is returned when a current price cannot be
	// computed (missing accounts, empty reserves, RPC failure).
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrUnknownPool is returned when no pool is registered for a mint.
	ErrUnknownPool = errors.New("unknown pool")

	// ErrInvalidMint is returned when a mint address fails validation.
	ErrInvalidMint = errors.New("invalid mint address")
)

// TradeResult describes a submitted trade.
type TradeResult struct {
	// TxID is the transaction signature.
	TxID string
	// Price is the pool price at submission time.
	Price float64
	// Amount is the base token amount bought or sold.
	Amount float64
	// Timestamp is the submission time in unix milliseconds.
	Timestamp int64
}

// ExecutionGateway abstracts trade execution and price lookup so the
// trading engine can run against the live AMM or a dry-run stub.
type ExecutionGateway interface {
	// Buy spends notional quote tokens on the mint's pool. Slippage
	// bounds the accepted quote amount above the observed price.
	Buy(ctx context.Context, mint string, notional, slippage float64) (*TradeResult, error)

	// Sell disposes amount base tokens on the mint's pool. Slippage
	// bounds the accepted quote amount below the observed price.
	Sell(ctx context.Context, mint string, amount, slippage float64) (*TradeResult, error)

	// GetCurrentPrice returns the instantaneous pool price for the
	// mint (quote per base, decimal adjusted).
	GetCurrentPrice(ctx context.Context, mint string) (float64, error)
}
