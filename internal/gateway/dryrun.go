package gateway

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

// PriceSource serves current pool prices.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, mint string) (float64, error)
}

// DryRunGateway simulates fills at live pool prices without
// submitting transactions. Used for paper trading against real
// migration events.
type DryRunGateway struct {
	prices  PriceSource
	logger  *log.Logger
	counter atomic.Int64
}

// NewDryRunGateway creates a gateway that fills at prices from src.
func NewDryRunGateway(src PriceSource, logger *log.Logger) *DryRunGateway {
	if logger == nil {
		logger = log.Default()
	}
	return &DryRunGateway{prices: src, logger: logger}
}

var _ ExecutionGateway = (*DryRunGateway)(nil)

// Buy simulates a fill at the current pool price.
func (g *DryRunGateway) Buy(ctx context.Context, mint string, notional, _ float64) (*TradeResult, error) {
	price, err := g.prices.GetCurrentPrice(ctx, mint)
	if err != nil {
		return nil, err
	}

	n := g.counter.Add(1)
	g.logger.Printf("simulated buy mint=%s notional=%.6f price=%.10f", mint, notional, price)

	return &TradeResult{
		TxID:      fmt.Sprintf("dry-run-buy-%d", n),
		Price:     price,
		Amount:    notional / price,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Sell simulates a fill at the current pool price.
func (g *DryRunGateway) Sell(ctx context.Context, mint string, amount, _ float64) (*TradeResult, error) {
	price, err := g.prices.GetCurrentPrice(ctx, mint)
	if err != nil {
		return nil, err
	}

	n := g.counter.Add(1)
	g.logger.Printf("simulated sell mint=%s amount=%.6f price=%.10f", mint, amount, price)

	return &TradeResult{
		TxID:      fmt.Sprintf("dry-run-sell-%d", n),
		Price:     price,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// GetCurrentPrice delegates to the underlying price source.
func (g *DryRunGateway) GetCurrentPrice(ctx context.Context, mint string) (float64, error) {
	return g.prices.GetCurrentPrice(ctx, mint)
}
