package memory

import (
	"context"
	"errors"
	"testing"

	"solana-migration-bot/internal/storage"
)

func TestProcessedStore_MarkAndCheck(t *testing.T) {
	store := NewProcessedStore()
	ctx := context.Background()

	if err := store.MarkProcessed(ctx, "sig1", 1000); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	seen, err := store.IsProcessed(ctx, "sig1")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !seen {
		t.Error("Expected sig1 to be processed")
	}

	seen, _ = store.IsProcessed(ctx, "sig2")
	if seen {
		t.Error("Expected sig2 to not be processed")
	}
}

func TestProcessedStore_DuplicateKey(t *testing.T) {
	store := NewProcessedStore()
	ctx := context.Background()

	if err := store.MarkProcessed(ctx, "sig1", 1000); err != nil {
		t.Fatalf("First mark failed: %v", err)
	}

	err := store.MarkProcessed(ctx, "sig1", 2000)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("Expected count 1, got %d", count)
	}
}

func TestProcessedStore_Count(t *testing.T) {
	store := NewProcessedStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.MarkProcessed(ctx, id, 1000); err != nil {
			t.Fatalf("MarkProcessed(%s) failed: %v", id, err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}
}

func TestProcessedStore_InvalidInput(t *testing.T) {
	store := NewProcessedStore()
	ctx := context.Background()

	err := store.MarkProcessed(ctx, "", 1000)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty id, got %v", err)
	}
}
