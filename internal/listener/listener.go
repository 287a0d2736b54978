// Package listener consumes log notifications from a WebSocket
// subscription, classifies and decodes migration events, and hands
// actionable ones to the trading engine in receipt order.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/migration"
	"solana-migration-bot/internal/observability"
	"solana-migration-bot/internal/solana"
	"solana-migration-bot/internal/storage"
)

// Dispatcher receives decoded migration events. Dispatch must not
// block: the listener calls it synchronously to preserve receipt order.
type Dispatcher interface {
	HandleMigration(ctx context.Context, ev *domain.MigrationEvent)
}

// PoolRegistrar learns pool accounts from migration events so later
// price reads and swaps can resolve them.
type PoolRegistrar interface {
	RegisterPool(ev *domain.MigrationEvent) error
}

// Options configures a Listener.
type Options struct {
	// WS is the subscription transport.
	WS solana.WSClient
	// Processed deduplicates deliveries by transaction signature.
	Processed storage.ProcessedStore
	// Engine receives actionable events.
	Engine Dispatcher
	// Registrar, when set, is told about each new pool before dispatch.
	// A registration failure skips the event: it cannot be traded.
	Registrar PoolRegistrar
	// Logger receives listener messages. Defaults to log.Default().
	Logger *log.Logger
}

// Listener runs the ingestion loop for migration program logs.
type Listener struct {
	ws        solana.WSClient
	processed storage.ProcessedStore
	engine    Dispatcher
	registrar PoolRegistrar
	logger    *log.Logger
}

// NewListener creates a listener. WS, Processed and Engine are required.
func NewListener(opts Options) (*Listener, error) {
	if opts.WS == nil {
		return nil, fmt.Errorf("websocket client is required")
	}
	if opts.Processed == nil {
		return nil, fmt.Errorf("processed store is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Listener{
		ws:        opts.WS,
		processed: opts.Processed,
		engine:    opts.Engine,
		registrar: opts.Registrar,
		logger:    opts.Logger,
	}, nil
}

// Run subscribes to migration program logs and processes notifications
// until ctx ends or the subscription channel closes. Notifications are
// handled one at a time so engine dispatch preserves receipt order.
func (l *Listener) Run(ctx context.Context) error {
	ch, err := l.ws.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions: []string{migration.MigrationProgram},
	})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}

	l.logger.Printf("subscribed to logs mentioning %s", migration.MigrationProgram)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			observability.DefaultMetrics.NotificationsReceived.Inc()
			l.handleNotification(ctx, &notif)
		}
	}
}

// handleNotification runs the full pipeline for one delivery: classify,
// deduplicate, decode, register, dispatch. Every skip is terminal for
// this delivery only; nothing here stops the loop.
func (l *Listener) handleNotification(ctx context.Context, notif *solana.LogNotification) {
	start := time.Now()

	// The notification's own error field dominates, same as error
	// markers inside the log lines.
	class := migration.Classify(notif.Logs)
	if notif.Err != nil {
		class = migration.FailedTransaction
	}
	observability.RecordClassification(class.String())

	switch class {
	case migration.Actionable:
	case migration.AlreadyMigrated:
		l.logger.Printf("tx %s: curve already migrated, skipping", notif.Signature)
		return
	default:
		return
	}

	seen, err := l.processed.IsProcessed(ctx, notif.Signature)
	if err != nil {
		l.logger.Printf("tx %s: dedup check failed: %v", notif.Signature, err)
		return
	}
	if seen {
		observability.RecordDuplicateDropped()
		l.logger.Printf("tx %s: duplicate delivery dropped", notif.Signature)
		return
	}

	// Long log lines get truncated by some RPC providers; a missing
	// payload is a recoverable skip, and the signature stays unmarked
	// so a complete redelivery can still be processed.
	payload, ok := migration.ExtractProgramData(notif.Logs)
	if !ok {
		observability.RecordDecodeError("missing_payload")
		l.logger.Printf("tx %s: no program data payload, skipping", notif.Signature)
		return
	}

	ev, err := migration.DecodeMigrateEvent(payload)
	if err != nil {
		observability.RecordDecodeError(decodeErrorType(err))
		l.logger.Printf("tx %s: decode failed: %v", notif.Signature, err)
		return
	}
	observability.DefaultMetrics.EventsDecoded.Inc()

	ev.TxSignature = notif.Signature
	ev.Slot = notif.Slot
	ev.DetectedAt = time.Now().UnixMilli()

	if err := l.processed.MarkProcessed(ctx, notif.Signature, ev.DetectedAt); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordDuplicateDropped()
			return
		}
		// Dedup state is memory-first: a failed persist is logged and
		// the event still trades.
		l.logger.Printf("tx %s: mark processed failed: %v", notif.Signature, err)
	}

	observability.DefaultMetrics.LastEventDetected.Set(float64(ev.DetectedAt) / 1000.0)
	l.logger.Printf("tx %s: migration detected, mint=%s pool=%s", ev.TxSignature, ev.BaseMint, ev.Pool)

	if l.registrar != nil {
		if err := l.registrar.RegisterPool(ev); err != nil {
			l.logger.Printf("tx %s: pool registration failed, skipping: %v", ev.TxSignature, err)
			return
		}
	}

	l.engine.HandleMigration(ctx, ev)
	observability.DefaultMetrics.DispatchLatency.Observe(time.Since(start).Seconds())
}

// decodeErrorType maps decode failures to metric labels.
func decodeErrorType(err error) string {
	var truncated *migration.TruncatedError
	switch {
	case errors.Is(err, migration.ErrTooShort):
		return "too_short"
	case errors.Is(err, migration.ErrBadDiscriminator):
		return "bad_discriminator"
	case errors.As(err, &truncated):
		return "truncated"
	default:
		return "unknown"
	}
}
