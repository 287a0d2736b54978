// Package main runs the migration sniper: it watches for bonding-curve
// graduations over a log subscription and trades the new pools.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"solana-migration-bot/internal/engine"
	"solana-migration-bot/internal/gateway"
	"solana-migration-bot/internal/listener"
	"solana-migration-bot/internal/observability"
	"solana-migration-bot/internal/solana"
	"solana-migration-bot/internal/storage"
	"solana-migration-bot/internal/storage/clickhouse"
	"solana-migration-bot/internal/storage/file"
	"solana-migration-bot/internal/storage/memory"
	"solana-migration-bot/internal/storage/migrations"
	"solana-migration-bot/internal/storage/postgres"
)

func main() {
	// Endpoints and credentials
	wsEndpoint := flag.String("ws-endpoint", "wss://api.mainnet-beta.solana.com", "WebSocket endpoint for log subscriptions")
	rpcEndpoint := flag.String("rpc-endpoint", "https://api.mainnet-beta.solana.com", "HTTP RPC endpoint")
	walletKey := flag.String("wallet-key", os.Getenv("WALLET_PRIVATE_KEY"), "Base58 wallet private key (or WALLET_PRIVATE_KEY env)")
	commitment := flag.String("commitment", "processed", "Subscription commitment level")

	// Storage
	storeKind := flag.String("store", "file", "Persistence backend: memory, file or postgres")
	dataDir := flag.String("data-dir", "data", "Directory for file-backed state")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL DSN (store=postgres)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN for price observations (optional)")

	// Trading parameters
	dryRun := flag.Bool("dry-run", false, "Simulate fills at live prices without submitting transactions")
	waitDuration := flag.Duration("wait", engine.DefaultWaitDuration, "Pause between detection and buy")
	pollInterval := flag.Duration("poll-interval", engine.DefaultPollInterval, "Price polling cadence while holding")
	takeProfit := flag.Float64("take-profit", engine.DefaultTakeProfit, "Take-profit ratio")
	stopLoss := flag.Float64("stop-loss", engine.DefaultStopLoss, "Stop-loss ratio magnitude")
	maxRetries := flag.Int("max-retries", engine.DefaultMaxRetries, "Attempts per buy/sell round")
	retryDelay := flag.Duration("retry-delay", engine.DefaultRetryDelay, "Base delay between retry attempts")
	expBackoff := flag.Bool("exponential-backoff", true, "Double the retry delay per attempt")
	notional := flag.Float64("notional", engine.DefaultNotional, "Quote amount spent per buy (SOL)")
	slippage := flag.Float64("slippage", engine.DefaultSlippage, "Accepted slippage on both sides")

	// Observability
	metricsAddr := flag.String("metrics-addr", ":9090", "Address for /metrics and /healthz (empty disables)")

	flag.Parse()

	logger := log.New(os.Stdout, "[trader] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal drains gracefully, second one forces exit.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received %v, shutting down (repeat to force)", sig)
		cancel()
		sig = <-sigCh
		logger.Printf("received %v again, forcing exit", sig)
		os.Exit(1)
	}()

	if err := run(ctx, cancel, logger, &config{
		wsEndpoint:    *wsEndpoint,
		rpcEndpoint:   *rpcEndpoint,
		walletKey:     *walletKey,
		commitment:    *commitment,
		storeKind:     *storeKind,
		dataDir:       *dataDir,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		dryRun:        *dryRun,
		waitDuration:  *waitDuration,
		pollInterval:  *pollInterval,
		takeProfit:    *takeProfit,
		stopLoss:      *stopLoss,
		maxRetries:    *maxRetries,
		retryDelay:    *retryDelay,
		expBackoff:    *expBackoff,
		notional:      *notional,
		slippage:      *slippage,
		metricsAddr:   *metricsAddr,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	wsEndpoint    string
	rpcEndpoint   string
	walletKey     string
	commitment    string
	storeKind     string
	dataDir       string
	postgresDSN   string
	clickhouseDSN string
	dryRun        bool
	waitDuration  time.Duration
	pollInterval  time.Duration
	takeProfit    float64
	stopLoss      float64
	maxRetries    int
	retryDelay    time.Duration
	expBackoff    bool
	notional      float64
	slippage      float64
	metricsAddr   string
}

type stores struct {
	processed storage.ProcessedStore
	positions storage.PositionStore
	trades    storage.TradeStore
}

func run(ctx context.Context, cancel context.CancelFunc, logger *log.Logger, cfg *config) error {
	if cfg.walletKey == "" {
		if !cfg.dryRun {
			return fmt.Errorf("wallet key is required (use -wallet-key or WALLET_PRIVATE_KEY)")
		}
		// Dry-run never submits, an ephemeral key is enough to build
		// and sign the unsent transactions.
		cfg.walletKey = solanago.NewWallet().PrivateKey.String()
		logger.Printf("dry-run with ephemeral wallet")
	}

	rpc := solana.NewHTTPClient(cfg.rpcEndpoint)

	// Warm up the RPC connection before subscribing.
	healthCtx, healthCancel := context.WithTimeout(ctx, 10*time.Second)
	err := rpc.GetHealth(healthCtx)
	healthCancel()
	if err != nil {
		logger.Printf("rpc health check failed, continuing anyway: %v", err)
	} else {
		logger.Printf("rpc endpoint healthy: %s", cfg.rpcEndpoint)
	}

	st, cleanup, err := buildStores(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	obs, obsCleanup, err := buildObservationStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer obsCleanup()

	curve, err := gateway.NewCurveGateway(gateway.CurveGatewayOptions{
		RPC:       rpc,
		WalletKey: cfg.walletKey,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	var gw gateway.ExecutionGateway = curve
	if cfg.dryRun {
		gw = gateway.NewDryRunGateway(curve, logger)
		logger.Printf("dry-run mode: fills simulated at live prices")
	}

	eng, err := engine.NewEngine(engine.Options{
		Gateway:            gw,
		Registrar:          curve,
		Positions:          st.positions,
		Trades:             st.trades,
		Observations:       obs,
		Logger:             logger,
		WaitDuration:       cfg.waitDuration,
		PollInterval:       cfg.pollInterval,
		TakeProfit:         cfg.takeProfit,
		StopLoss:           cfg.stopLoss,
		MaxRetries:         cfg.maxRetries,
		RetryDelay:         cfg.retryDelay,
		ExponentialBackoff: cfg.expBackoff,
		Notional:           cfg.notional,
		Slippage:           cfg.slippage,
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	// Resumed positions carry their pool keys and re-register them
	// with the gateway before their monitors start polling.
	if err := eng.Resume(ctx); err != nil {
		return fmt.Errorf("resume positions: %w", err)
	}

	if cfg.metricsAddr != "" {
		startMetricsServer(ctx, logger, cfg.metricsAddr, rpc)
	}

	ws, err := solana.NewWSClient(ctx, cfg.wsEndpoint, &solana.WSClientConfig{
		Commitment: cfg.commitment,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	lst, err := listener.NewListener(listener.Options{
		WS:        ws,
		Processed: st.processed,
		Engine:    eng,
		Registrar: curve,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create listener: %w", err)
	}

	logger.Printf("listening for migrations on %s", cfg.wsEndpoint)

	runErr := lst.Run(ctx)
	if runErr != nil && ctx.Err() == nil {
		logger.Printf("listener stopped: %v", runErr)
		cancel()
	}

	logger.Printf("waiting for open flows to settle")
	eng.Wait()
	logger.Printf("done, total profit/loss ratio: %.4f", eng.TotalProfitLoss())

	if ctx.Err() != nil {
		return nil
	}
	return runErr
}

// buildStores wires the persistence backend selected by -store.
func buildStores(ctx context.Context, logger *log.Logger, cfg *config) (*stores, func(), error) {
	noop := func() {}

	switch cfg.storeKind {
	case "memory":
		logger.Printf("using in-memory stores (state lost on restart)")
		return &stores{
			processed: memory.NewProcessedStore(),
			positions: memory.NewPositionStore(),
			trades:    memory.NewTradeStore(),
		}, noop, nil

	case "file":
		if err := os.MkdirAll(cfg.dataDir, 0o755); err != nil {
			return nil, noop, fmt.Errorf("create data dir: %w", err)
		}
		processed, err := file.NewProcessedStore(filepath.Join(cfg.dataDir, "processed.json"))
		if err != nil {
			return nil, noop, fmt.Errorf("open processed store: %w", err)
		}
		positions, err := file.NewPositionStore(filepath.Join(cfg.dataDir, "positions.json"))
		if err != nil {
			return nil, noop, fmt.Errorf("open position store: %w", err)
		}
		trades, err := file.NewTradeStore(filepath.Join(cfg.dataDir, "trades.json"))
		if err != nil {
			return nil, noop, fmt.Errorf("open trade store: %w", err)
		}
		logger.Printf("using file stores under %s", cfg.dataDir)
		return &stores{processed: processed, positions: positions, trades: trades}, noop, nil

	case "postgres":
		if cfg.postgresDSN == "" {
			return nil, noop, fmt.Errorf("postgres store requires -postgres-dsn")
		}
		pool, err := postgres.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("run postgres migrations: %w", err)
		}

		// Positions are small crash-resume state; they live next to the
		// binary even when trades and dedup go to postgres.
		if err := os.MkdirAll(cfg.dataDir, 0o755); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("create data dir: %w", err)
		}
		positions, err := file.NewPositionStore(filepath.Join(cfg.dataDir, "positions.json"))
		if err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("open position store: %w", err)
		}

		logger.Printf("using postgres stores")
		return &stores{
			processed: postgres.NewProcessedStore(pool),
			positions: positions,
			trades:    postgres.NewTradeStore(pool),
		}, pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown store kind %q", cfg.storeKind)
	}
}

// buildObservationStore opens the optional ClickHouse sink.
func buildObservationStore(ctx context.Context, logger *log.Logger, cfg *config) (storage.ObservationStore, func(), error) {
	noop := func() {}
	if cfg.clickhouseDSN == "" {
		return nil, noop, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.clickhouseDSN)
	if err != nil {
		return nil, noop, fmt.Errorf("run clickhouse migrations: %w", err)
	}
	logger.Printf("recording price observations to clickhouse")
	return clickhouse.NewObservationStore(conn), func() { conn.Close() }, nil
}

// startMetricsServer serves /metrics and /healthz until ctx ends.
func startMetricsServer(ctx context.Context, logger *log.Logger, addr string, rpc solana.RPCClient) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, checkCancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer checkCancel()
		if err := rpc.GetHealth(checkCtx); err != nil {
			http.Error(w, fmt.Sprintf("rpc unhealthy: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Printf("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.DefaultMetrics.UptimeSeconds.Inc()
			}
		}
	}()
}
