// Package engine runs the per-token trading state machine: wait after
// a migration is detected, buy, monitor the position, exit on take
// profit or stop loss.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/gateway"
	"solana-migration-bot/internal/observability"
	"solana-migration-bot/internal/storage"
)

// Default trading parameters.
const (
	DefaultWaitDuration = 15 * time.Second
	DefaultPollInterval = 10 * time.Second
	DefaultTakeProfit   = 0.20
	DefaultStopLoss     = 0.50
	DefaultMaxRetries   = 5
	DefaultRetryDelay   = 1 * time.Second
	DefaultNotional     = 0.2
	DefaultSlippage     = 0.1

	maxRetryDelay = 30 * time.Second
)

// PoolRegistrar reinstates pool accounts for resumed positions so the
// gateway can serve their prices without a fresh migration event.
type PoolRegistrar interface {
	RegisterPoolKeys(mint string, keys domain.PoolKeys) error
}

// Options configures an Engine.
type Options struct {
	// Gateway executes trades and serves prices.
	Gateway gateway.ExecutionGateway
	// Registrar, when set, is handed each resumed position's persisted
	// pool keys before its monitor starts.
	Registrar PoolRegistrar
	// Positions persists open positions across restarts.
	Positions storage.PositionStore
	// Trades records completed trades.
	Trades storage.TradeStore
	// Observations optionally receives per-tick price samples.
	Observations storage.ObservationStore
	// Logger receives engine messages. Defaults to log.Default().
	Logger *log.Logger

	// WaitDuration is the pause between detection and the buy attempt,
	// letting the pool absorb the initial migration volatility.
	WaitDuration time.Duration
	// PollInterval is the price polling cadence while holding.
	PollInterval time.Duration
	// TakeProfit is the profit ratio that triggers an exit (inclusive).
	TakeProfit float64
	// StopLoss is the loss ratio magnitude that triggers an exit
	// (inclusive). Stored positive; a position exits when its ratio
	// drops to -StopLoss or below.
	StopLoss float64
	// MaxRetries bounds buy attempts and each sell round.
	MaxRetries int
	// RetryDelay is the base delay between retry attempts.
	RetryDelay time.Duration
	// ExponentialBackoff doubles the retry delay per attempt.
	ExponentialBackoff bool
	// Notional is the quote amount spent per buy.
	Notional float64
	// Slippage bounds accepted fill prices on both sides.
	Slippage float64
}

// Engine tracks one trading flow per token mint. In-memory state is
// authoritative; stores are best-effort durability.
type Engine struct {
	gw        gateway.ExecutionGateway
	registrar PoolRegistrar
	posSt     storage.PositionStore
	trades    storage.TradeStore
	obs       storage.ObservationStore
	logger    *log.Logger
	cfg       Options

	mu      sync.Mutex
	active  map[string]*domain.Position // keyed by mint
	totalPL float64

	wg sync.WaitGroup
}

// NewEngine creates a trading engine. Gateway, Positions and Trades
// are required.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if opts.Positions == nil {
		return nil, fmt.Errorf("position store is required")
	}
	if opts.Trades == nil {
		return nil, fmt.Errorf("trade store is required")
	}

	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.WaitDuration <= 0 {
		opts.WaitDuration = DefaultWaitDuration
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.TakeProfit <= 0 {
		opts.TakeProfit = DefaultTakeProfit
	}
	if opts.StopLoss <= 0 {
		opts.StopLoss = DefaultStopLoss
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Notional <= 0 {
		opts.Notional = DefaultNotional
	}
	if opts.Slippage <= 0 {
		opts.Slippage = DefaultSlippage
	}

	return &Engine{
		gw:        opts.Gateway,
		registrar: opts.Registrar,
		posSt:     opts.Positions,
		trades:    opts.Trades,
		obs:       opts.Observations,
		logger:    opts.Logger,
		cfg:       opts,
		active:    make(map[string]*domain.Position),
	}, nil
}

// HandleMigration starts a trading flow for the event's base mint.
// A mint with a flow already in progress is ignored. The call returns
// immediately; the flow runs on its own goroutine under ctx.
func (e *Engine) HandleMigration(ctx context.Context, ev *domain.MigrationEvent) {
	mint := ev.BaseMint

	e.mu.Lock()
	if _, exists := e.active[mint]; exists {
		e.mu.Unlock()
		e.logger.Printf("mint %s already tracked, skipping", mint)
		return
	}
	e.active[mint] = &domain.Position{Mint: mint, State: domain.StateDetected}
	count := len(e.active)
	e.mu.Unlock()

	observability.SetOpenPositions(count)
	e.logger.Printf("tracking mint %s (tx %s)", mint, ev.TxSignature)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.track(ctx, ev)
	}()
}

// Resume restarts monitors for positions persisted by a previous run.
func (e *Engine) Resume(ctx context.Context) error {
	positions, err := e.posSt.List(ctx)
	if err != nil {
		return fmt.Errorf("list persisted positions: %w", err)
	}

	for _, p := range positions {
		if p.State != domain.StateHolding && p.State != domain.StateSelling {
			continue
		}
		pos := p

		e.mu.Lock()
		if _, exists := e.active[pos.Mint]; exists {
			e.mu.Unlock()
			continue
		}
		e.active[pos.Mint] = pos
		count := len(e.active)
		e.mu.Unlock()

		// The gateway's pool map died with the previous process; the
		// keys persisted on the position bring it back.
		if e.registrar != nil && pos.Pool.Address != "" {
			if err := e.registrar.RegisterPoolKeys(pos.Mint, pos.Pool); err != nil {
				e.logger.Printf("mint %s: pool re-registration failed: %v", pos.Mint, err)
			}
		}

		observability.SetOpenPositions(count)
		e.logger.Printf("resuming position mint=%s entry=%.10f state=%s", pos.Mint, pos.EntryPrice, pos.State)

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.monitor(ctx, pos)
		}()
	}
	return nil
}

// Wait blocks until all trading flows have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// TotalProfitLoss returns the cumulative realized profit/loss ratio.
func (e *Engine) TotalProfitLoss() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalPL
}

// OpenPositions returns the number of mints currently tracked.
func (e *Engine) OpenPositions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// track runs the full flow for one mint: wait, buy, monitor.
func (e *Engine) track(ctx context.Context, ev *domain.MigrationEvent) {
	mint := ev.BaseMint
	defer e.release(mint)

	e.setState(mint, domain.StateWaiting)
	if !sleepCtx(ctx, e.cfg.WaitDuration) {
		e.logger.Printf("mint %s: aborted before buy", mint)
		return
	}

	e.setState(mint, domain.StateBuying)
	result, err := e.buyWithRetries(ctx, mint)
	if err != nil {
		e.logger.Printf("mint %s: buy abandoned: %v", mint, err)
		e.recordBuyFailure(ctx, mint)
		return
	}

	pos := &domain.Position{
		Mint:         mint,
		EntryPrice:   result.Price,
		EntryAmount:  result.Amount,
		EntryTime:    result.Timestamp,
		EntryTxID:    result.TxID,
		CurrentPrice: result.Price,
		LastUpdated:  result.Timestamp,
		State:        domain.StateHolding,
		Pool:         ev.PoolKeys(),
	}

	e.mu.Lock()
	e.active[mint] = pos
	e.mu.Unlock()

	e.persistPosition(ctx, pos)
	e.logger.Printf("mint %s: bought %.6f @ %.10f (tx %s)", mint, pos.EntryAmount, pos.EntryPrice, pos.EntryTxID)

	e.monitor(ctx, pos)
}

// monitor polls the price until an exit trigger fires or ctx ends.
// Once a sell is triggered the position stays in SELLING and every
// tick retries the exit; the thresholds are never re-evaluated, so a
// price that wanders back between them cannot strand the position.
func (e *Engine) monitor(ctx context.Context, pos *domain.Position) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	// A resumed position can already be mid-exit.
	var outcome string
	if pos.State == domain.StateSelling {
		outcome = outcomeForRatio(pos.ProfitLossRatio)
	}

	for {
		select {
		case <-ctx.Done():
			// Position stays persisted for the next run.
			e.logger.Printf("mint %s: monitor stopped, position retained", pos.Mint)
			return
		case <-ticker.C:
		}

		if pos.State != domain.StateSelling {
			price, err := e.gw.GetCurrentPrice(ctx, pos.Mint)
			if err != nil {
				observability.DefaultMetrics.PricePollErrors.Inc()
				e.logger.Printf("mint %s: price poll failed: %v", pos.Mint, err)
				continue
			}

			now := time.Now().UnixMilli()
			pos.CurrentPrice = price
			pos.ProfitLossRatio = (price - pos.EntryPrice) / pos.EntryPrice
			pos.LastUpdated = now
			e.persistPosition(ctx, pos)
			e.recordObservation(ctx, pos, now)

			// Stop loss wins when both thresholds are crossed at once.
			switch {
			case pos.ProfitLossRatio <= -e.cfg.StopLoss:
				outcome = domain.OutcomeStopLoss
			case pos.ProfitLossRatio >= e.cfg.TakeProfit:
				outcome = domain.OutcomeTakeProfit
			default:
				continue
			}

			pos.State = domain.StateSelling
			e.persistPosition(ctx, pos)
			e.logger.Printf("mint %s: %s triggered at ratio %.4f", pos.Mint, outcome, pos.ProfitLossRatio)
		}

		// A triggered sell is never abandoned: it survives shutdown
		// and, if a retry round fails, resumes on the next tick.
		sellCtx := context.WithoutCancel(ctx)
		result, err := e.sellWithRetries(sellCtx, pos)
		if err != nil {
			e.logger.Printf("mint %s: sell round failed, retrying next tick: %v", pos.Mint, err)
			continue
		}

		e.finalize(sellCtx, pos, result, outcome)
		return
	}
}

// outcomeForRatio labels the exit a mid-flight sell will record when
// the triggering tick itself was lost to a restart.
func outcomeForRatio(ratio float64) string {
	if ratio < 0 {
		return domain.OutcomeStopLoss
	}
	return domain.OutcomeTakeProfit
}

// finalize records the completed trade and releases the position.
func (e *Engine) finalize(ctx context.Context, pos *domain.Position, result *gateway.TradeResult, outcome string) {
	realized := (result.Price - pos.EntryPrice) / pos.EntryPrice

	trade := &domain.CompletedTrade{
		Mint:            pos.Mint,
		EntryPrice:      pos.EntryPrice,
		ExitPrice:       result.Price,
		Amount:          pos.EntryAmount,
		ProfitLossRatio: realized,
		Outcome:         outcome,
		EntryTime:       pos.EntryTime,
		ExitTime:        result.Timestamp,
		EntryTxID:       pos.EntryTxID,
		ExitTxID:        result.TxID,
	}

	if err := e.trades.Insert(ctx, trade); err != nil {
		e.logger.Printf("mint %s: record trade failed: %v", pos.Mint, err)
	}
	if err := e.posSt.Delete(ctx, pos.Mint); err != nil {
		e.logger.Printf("mint %s: delete position failed: %v", pos.Mint, err)
	}

	pos.State = domain.StateClosed

	e.mu.Lock()
	e.totalPL += realized
	total := e.totalPL
	e.mu.Unlock()

	holdSeconds := float64(trade.ExitTime-trade.EntryTime) / 1000.0
	observability.RecordTradeCompleted(outcome, holdSeconds)
	observability.SetTotalProfitLoss(total)

	e.logger.Printf("mint %s: closed %s ratio=%.4f total=%.4f", pos.Mint, outcome, realized, total)
}

// recordBuyFailure logs an abandoned entry as a BUY_FAILED trade.
func (e *Engine) recordBuyFailure(ctx context.Context, mint string) {
	trade := &domain.CompletedTrade{
		Mint:     mint,
		Outcome:  domain.OutcomeBuyFailed,
		ExitTime: time.Now().UnixMilli(),
	}
	if err := e.trades.Insert(ctx, trade); err != nil {
		e.logger.Printf("mint %s: record buy failure failed: %v", mint, err)
	}
	observability.RecordTradeCompleted(domain.OutcomeBuyFailed, 0)
}

// buyWithRetries attempts the entry up to MaxRetries times.
func (e *Engine) buyWithRetries(ctx context.Context, mint string) (*gateway.TradeResult, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		result, err := e.gw.Buy(ctx, mint, e.cfg.Notional, e.cfg.Slippage)
		if err == nil {
			observability.DefaultMetrics.BuysSubmitted.Inc()
			return result, nil
		}

		lastErr = err
		observability.DefaultMetrics.BuyFailures.Inc()
		e.logger.Printf("mint %s: buy attempt %d/%d failed: %v", mint, attempt, e.cfg.MaxRetries, err)

		if attempt < e.cfg.MaxRetries {
			if !sleepCtx(ctx, e.retryDelay(attempt)) {
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("%d attempts: %w", e.cfg.MaxRetries, lastErr)
}

// sellWithRetries attempts the exit up to MaxRetries times.
func (e *Engine) sellWithRetries(ctx context.Context, pos *domain.Position) (*gateway.TradeResult, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		result, err := e.gw.Sell(ctx, pos.Mint, pos.EntryAmount, e.cfg.Slippage)
		if err == nil {
			observability.DefaultMetrics.SellsSubmitted.Inc()
			return result, nil
		}

		lastErr = err
		observability.DefaultMetrics.SellFailures.Inc()
		e.logger.Printf("mint %s: sell attempt %d/%d failed: %v", pos.Mint, attempt, e.cfg.MaxRetries, err)

		if attempt < e.cfg.MaxRetries {
			if !sleepCtx(ctx, e.retryDelay(attempt)) {
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("%d attempts: %w", e.cfg.MaxRetries, lastErr)
}

// retryDelay returns the delay before the given attempt's successor.
func (e *Engine) retryDelay(attempt int) time.Duration {
	delay := e.cfg.RetryDelay
	if e.cfg.ExponentialBackoff {
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay >= maxRetryDelay {
				return maxRetryDelay
			}
		}
	}
	return delay
}

// persistPosition writes the position to the store, best effort.
func (e *Engine) persistPosition(ctx context.Context, pos *domain.Position) {
	if err := e.posSt.Save(ctx, pos); err != nil {
		e.logger.Printf("mint %s: persist position failed: %v", pos.Mint, err)
	}
}

// recordObservation forwards a price sample to the observation sink.
func (e *Engine) recordObservation(ctx context.Context, pos *domain.Position, now int64) {
	if e.obs == nil {
		return
	}
	sample := []*domain.PriceObservation{{
		Mint:            pos.Mint,
		TimestampMs:     now,
		Price:           pos.CurrentPrice,
		ProfitLossRatio: pos.ProfitLossRatio,
	}}
	if err := e.obs.InsertBulk(ctx, sample); err != nil {
		e.logger.Printf("mint %s: record observation failed: %v", pos.Mint, err)
	}
}

// setState updates the tracked state of a pre-position flow.
func (e *Engine) setState(mint string, state domain.TokenState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.active[mint]; ok {
		p.State = state
	}
}

// release drops the mint from the active set.
func (e *Engine) release(mint string) {
	e.mu.Lock()
	delete(e.active, mint)
	count := len(e.active)
	e.mu.Unlock()
	observability.SetOpenPositions(count)
}

// sleepCtx sleeps for d. Returns false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
