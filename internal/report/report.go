// Package report summarizes completed trades into markdown and CSV
// artifacts.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/storage"
)

// Summary holds aggregate statistics over completed trades.
type Summary struct {
	GeneratedAt time.Time

	TotalTrades int
	TakeProfits int
	StopLosses  int
	BuyFailures int

	// Ratio statistics cover filled trades only; BUY_FAILED entries
	// carry no ratio.
	WinRate         float64
	TotalProfitLoss float64
	MeanRatio       float64
	MedianRatio     float64
	BestRatio       float64
	WorstRatio      float64
	MeanHoldSeconds float64

	FirstEntryTime int64 // unix ms, zero when no filled trades
	LastExitTime   int64
}

// Generator produces trade reports from a TradeStore.
type Generator struct {
	trades storage.TradeStore
	now    func() time.Time
}

// NewGenerator creates a report generator.
func NewGenerator(trades storage.TradeStore) *Generator {
	return &Generator{
		trades: trades,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads all trades and computes the summary.
func (g *Generator) Generate(ctx context.Context) (*Summary, []*domain.CompletedTrade, error) {
	trades, err := g.trades.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list trades: %w", err)
	}

	summary := Compute(trades)
	summary.GeneratedAt = g.now()
	return summary, trades, nil
}

// Run generates the report and writes TRADE_REPORT.md and
// completed_trades.csv into outputDir.
func (g *Generator) Run(ctx context.Context, outputDir string) error {
	summary, trades, err := g.Generate(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(outputDir, "TRADE_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(summary, trades)), 0o644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}

	csvPath := filepath.Join(outputDir, "completed_trades.csv")
	if err := os.WriteFile(csvPath, []byte(RenderCSV(trades)), 0o644); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	return nil
}

// Compute calculates aggregate statistics from trades.
func Compute(trades []*domain.CompletedTrade) *Summary {
	s := &Summary{TotalTrades: len(trades)}

	var filled []*domain.CompletedTrade
	for _, t := range trades {
		switch t.Outcome {
		case domain.OutcomeTakeProfit:
			s.TakeProfits++
		case domain.OutcomeStopLoss:
			s.StopLosses++
		case domain.OutcomeBuyFailed:
			s.BuyFailures++
		}
		if t.Outcome != domain.OutcomeBuyFailed {
			filled = append(filled, t)
		}
	}

	n := len(filled)
	if n == 0 {
		return s
	}

	ratios := make([]float64, n)
	wins := 0
	var totalHoldMs int64
	s.FirstEntryTime = filled[0].EntryTime
	s.LastExitTime = filled[0].ExitTime

	for i, t := range filled {
		ratios[i] = t.ProfitLossRatio
		s.TotalProfitLoss += t.ProfitLossRatio
		if t.ProfitLossRatio > 0 {
			wins++
		}
		totalHoldMs += t.ExitTime - t.EntryTime
		if t.EntryTime < s.FirstEntryTime {
			s.FirstEntryTime = t.EntryTime
		}
		if t.ExitTime > s.LastExitTime {
			s.LastExitTime = t.ExitTime
		}
	}

	sorted := make([]float64, n)
	copy(sorted, ratios)
	sort.Float64s(sorted)

	s.WinRate = float64(wins) / float64(n)
	s.MeanRatio = s.TotalProfitLoss / float64(n)
	s.MedianRatio = percentile(sorted, 0.50)
	s.BestRatio = sorted[n-1]
	s.WorstRatio = sorted[0]
	s.MeanHoldSeconds = float64(totalHoldMs) / float64(n) / 1000.0

	return s
}

// percentile returns the linearly interpolated percentile of a sorted
// slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	rank := p * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
