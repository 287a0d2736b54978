// Package stub provides a fake ExecutionGateway for tests.
package stub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solana-migration-bot/internal/gateway"
)

// Call records a Buy or Sell invocation.
type Call struct {
	Mint     string
	Amount   float64
	Slippage float64
	Price    float64
}

// Gateway implements gateway.ExecutionGateway with scripted prices
// and optional failure injection.
type Gateway struct {
	mu sync.Mutex

	// prices holds per-mint price sequences. Each GetCurrentPrice
	// call consumes one value; the last value repeats.
	prices   map[string][]float64
	priceIdx map[string]int

	// PriceErr, when set, is returned from GetCurrentPrice.
	PriceErr error

	buyFailures  int
	sellFailures int

	Buys  []Call
	Sells []Call

	txCounter int
}

// NewGateway creates a stub gateway with no prices set.
func NewGateway() *Gateway {
	return &Gateway{
		prices:   make(map[string][]float64),
		priceIdx: make(map[string]int),
	}
}

var _ gateway.ExecutionGateway = (*Gateway)(nil)

// SetPrices scripts the price sequence for a mint.
func (g *Gateway) SetPrices(mint string, prices ...float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prices[mint] = prices
	g.priceIdx[mint] = 0
}

// FailBuys makes the next n Buy calls fail.
func (g *Gateway) FailBuys(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buyFailures = n
}

// FailSells makes the next n Sell calls fail.
func (g *Gateway) FailSells(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sellFailures = n
}

// GetCurrentPrice serves the next scripted price for the mint.
func (g *Gateway) GetCurrentPrice(_ context.Context, mint string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentPriceLocked(mint)
}

func (g *Gateway) currentPriceLocked(mint string) (float64, error) {
	if g.PriceErr != nil {
		return 0, g.PriceErr
	}

	seq, ok := g.prices[mint]
	if !ok || len(seq) == 0 {
		return 0, gateway.ErrPriceUnavailable
	}

	idx := g.priceIdx[mint]
	if idx >= len(seq) {
		idx = len(seq) - 1
	}
	price := seq[idx]
	g.priceIdx[mint] = idx + 1
	return price, nil
}

// Buy fills at the current scripted price unless failures are queued.
func (g *Gateway) Buy(_ context.Context, mint string, notional, slippage float64) (*gateway.TradeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.buyFailures > 0 {
		g.buyFailures--
		return nil, fmt.Errorf("buy rejected")
	}

	price, err := g.currentPriceLocked(mint)
	if err != nil {
		return nil, err
	}

	g.txCounter++
	g.Buys = append(g.Buys, Call{Mint: mint, Amount: notional, Slippage: slippage, Price: price})

	return &gateway.TradeResult{
		TxID:      fmt.Sprintf("stub-buy-%d", g.txCounter),
		Price:     price,
		Amount:    notional / price,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Sell fills at the current scripted price unless failures are queued.
func (g *Gateway) Sell(_ context.Context, mint string, amount, slippage float64) (*gateway.TradeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sellFailures > 0 {
		g.sellFailures--
		return nil, fmt.Errorf("sell rejected")
	}

	price, err := g.currentPriceLocked(mint)
	if err != nil {
		return nil, err
	}

	g.txCounter++
	g.Sells = append(g.Sells, Call{Mint: mint, Amount: amount, Slippage: slippage, Price: price})

	return &gateway.TradeResult{
		TxID:      fmt.Sprintf("stub-sell-%d", g.txCounter),
		Price:     price,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// BuyCount returns the number of successful buys.
func (g *Gateway) BuyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Buys)
}

// SellCount returns the number of successful sells.
func (g *Gateway) SellCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Sells)
}
