// Package main generates a markdown + CSV report from recorded trades.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"solana-migration-bot/internal/report"
	"solana-migration-bot/internal/storage"
	"solana-migration-bot/internal/storage/file"
	"solana-migration-bot/internal/storage/migrations"
	"solana-migration-bot/internal/storage/postgres"
)

func main() {
	storeKind := flag.String("store", "file", "Trade source: file or postgres")
	dataDir := flag.String("data-dir", "data", "Directory holding file-backed state")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL DSN (store=postgres)")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	flag.Parse()

	ctx := context.Background()

	trades, cleanup, err := openTradeStore(ctx, *storeKind, *dataDir, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := report.NewGenerator(trades).Run(ctx, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Report written:\n")
	fmt.Printf("  - %s/TRADE_REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/completed_trades.csv\n", *outputDir)
}

func openTradeStore(ctx context.Context, kind, dataDir, dsn string) (storage.TradeStore, func(), error) {
	noop := func() {}

	switch kind {
	case "file":
		store, err := file.NewTradeStore(filepath.Join(dataDir, "trades.json"))
		if err != nil {
			return nil, noop, fmt.Errorf("open trade store: %w", err)
		}
		return store, noop, nil

	case "postgres":
		if dsn == "" {
			return nil, noop, fmt.Errorf("postgres store requires -postgres-dsn")
		}
		pool, err := postgres.NewPool(ctx, dsn)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("run migrations: %w", err)
		}
		return postgres.NewTradeStore(pool), pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown store kind %q", kind)
	}
}
