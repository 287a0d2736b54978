package gateway

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/mr-tron/base58"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/solana"
	"solana-migration-bot/internal/solana/stub"
)

// genAddress returns a freshly generated base58 ed25519 public key.
func genAddress(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base58.Encode(pub)
}

// genWalletKey returns a base58-encoded 64-byte ed25519 private key.
func genWalletKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base58.Encode(priv)
}

// poolAccountData builds pool account bytes with the two vault
// addresses at their layout offsets.
func poolAccountData(t *testing.T, baseVault, quoteVault string) string {
	t.Helper()

	data := make([]byte, poolAccountMinLen)
	bv, err := base58.Decode(baseVault)
	if err != nil {
		t.Fatalf("decode base vault: %v", err)
	}
	qv, err := base58.Decode(quoteVault)
	if err != nil {
		t.Fatalf("decode quote vault: %v", err)
	}
	copy(data[poolBaseVaultOffset:], bv)
	copy(data[poolQuoteVaultOffset:], qv)
	return base64.StdEncoding.EncodeToString(data)
}

// tokenAccountData builds SPL token account bytes with the raw amount.
func tokenAccountData(amount uint64) string {
	data := make([]byte, tokenAccountMin)
	binary.LittleEndian.PutUint64(data[tokenAmountOffset:], amount)
	return base64.StdEncoding.EncodeToString(data)
}

type testPool struct {
	gw    *CurveGateway
	rpc   *stub.RPCClient
	event *domain.MigrationEvent
}

// setupPool wires a CurveGateway over a stub RPC with a registered
// pool holding the given raw reserves.
func setupPool(t *testing.T, baseRaw, quoteRaw uint64) *testPool {
	t.Helper()

	rpc := stub.NewRPCClient()

	event := &domain.MigrationEvent{
		BaseMint:              genAddress(t),
		QuoteMint:             genAddress(t),
		BaseMintDecimals:      6,
		QuoteMintDecimals:     9,
		Pool:                  genAddress(t),
		UserBaseTokenAccount:  genAddress(t),
		UserQuoteTokenAccount: genAddress(t),
	}

	baseVault := genAddress(t)
	quoteVault := genAddress(t)

	rpc.AddAccount(event.Pool, &solana.AccountInfo{
		Data: poolAccountData(t, baseVault, quoteVault),
	})
	rpc.AddAccount(baseVault, &solana.AccountInfo{Data: tokenAccountData(baseRaw)})
	rpc.AddAccount(quoteVault, &solana.AccountInfo{Data: tokenAccountData(quoteRaw)})

	gw, err := NewCurveGateway(CurveGatewayOptions{
		RPC:       rpc,
		WalletKey: genWalletKey(t),
	})
	if err != nil {
		t.Fatalf("NewCurveGateway: %v", err)
	}

	if err := gw.RegisterPool(event); err != nil {
		t.Fatalf("RegisterPool: %v", err)
	}

	return &testPool{gw: gw, rpc: rpc, event: event}
}

func TestCurveGateway_GetCurrentPrice(t *testing.T) {
	// 1000 base tokens (6 decimals) against 30 quote tokens (9 decimals).
	tp := setupPool(t, 1_000_000_000, 30_000_000_000)

	price, err := tp.gw.GetCurrentPrice(context.Background(), tp.event.BaseMint)
	if err != nil {
		t.Fatalf("GetCurrentPrice: %v", err)
	}

	want := 0.03
	if diff := price - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("price mismatch: got %v, want %v", price, want)
	}
}

func TestCurveGateway_EmptyReserve(t *testing.T) {
	tp := setupPool(t, 0, 30_000_000_000)

	_, err := tp.gw.GetCurrentPrice(context.Background(), tp.event.BaseMint)
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("Expected ErrPriceUnavailable, got %v", err)
	}
}

func TestCurveGateway_UnknownPool(t *testing.T) {
	tp := setupPool(t, 1, 1)

	_, err := tp.gw.GetCurrentPrice(context.Background(), genAddress(t))
	if !errors.Is(err, ErrUnknownPool) {
		t.Errorf("Expected ErrUnknownPool, got %v", err)
	}

	_, err = tp.gw.Buy(context.Background(), genAddress(t), 0.2, 0.1)
	if !errors.Is(err, ErrUnknownPool) {
		t.Errorf("Expected ErrUnknownPool from Buy, got %v", err)
	}
}

func TestCurveGateway_BuySubmitsTransaction(t *testing.T) {
	tp := setupPool(t, 1_000_000_000, 30_000_000_000)

	result, err := tp.gw.Buy(context.Background(), tp.event.BaseMint, 0.3, 0.1)
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}

	if tp.rpc.SendCount() != 1 {
		t.Errorf("Expected 1 submitted transaction, got %d", tp.rpc.SendCount())
	}
	if result.TxID == "" {
		t.Error("Expected transaction signature")
	}
	if diff := result.Price - 0.03; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("Fill price mismatch: got %v", result.Price)
	}
	// 0.3 quote at price 0.03 buys 10 base tokens.
	if diff := result.Amount - 10.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Fill amount mismatch: got %v", result.Amount)
	}
}

func TestCurveGateway_SellSubmitsTransaction(t *testing.T) {
	tp := setupPool(t, 1_000_000_000, 30_000_000_000)

	result, err := tp.gw.Sell(context.Background(), tp.event.BaseMint, 10.0, 0.1)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}

	if tp.rpc.SendCount() != 1 {
		t.Errorf("Expected 1 submitted transaction, got %d", tp.rpc.SendCount())
	}
	if result.Amount != 10.0 {
		t.Errorf("Expected amount 10.0, got %v", result.Amount)
	}
}

func TestCurveGateway_ResumedPoolKeysServePrices(t *testing.T) {
	tp := setupPool(t, 1_000_000_000, 30_000_000_000)

	// A fresh gateway over the same chain state, as after a restart:
	// no migration event, only the keys persisted with the position.
	gw, err := NewCurveGateway(CurveGatewayOptions{
		RPC:       tp.rpc,
		WalletKey: genWalletKey(t),
	})
	if err != nil {
		t.Fatalf("NewCurveGateway: %v", err)
	}

	if err := gw.RegisterPoolKeys(tp.event.BaseMint, tp.event.PoolKeys()); err != nil {
		t.Fatalf("RegisterPoolKeys: %v", err)
	}

	price, err := gw.GetCurrentPrice(context.Background(), tp.event.BaseMint)
	if err != nil {
		t.Fatalf("GetCurrentPrice: %v", err)
	}
	if diff := price - 0.03; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("price mismatch: got %v, want 0.03", price)
	}

	result, err := gw.Sell(context.Background(), tp.event.BaseMint, 10.0, 0.1)
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if result.TxID == "" {
		t.Error("Expected transaction signature")
	}
}

func TestRegisterPoolKeys_InvalidPool(t *testing.T) {
	gw, err := NewCurveGateway(CurveGatewayOptions{
		RPC:       stub.NewRPCClient(),
		WalletKey: genWalletKey(t),
	})
	if err != nil {
		t.Fatalf("NewCurveGateway: %v", err)
	}

	err = gw.RegisterPoolKeys(genAddress(t), domain.PoolKeys{Address: "bogus"})
	if !errors.Is(err, ErrInvalidMint) {
		t.Errorf("Expected ErrInvalidMint, got %v", err)
	}
}

func TestRegisterPool_InvalidMint(t *testing.T) {
	gw, err := NewCurveGateway(CurveGatewayOptions{
		RPC:       stub.NewRPCClient(),
		WalletKey: genWalletKey(t),
	})
	if err != nil {
		t.Fatalf("NewCurveGateway: %v", err)
	}

	err = gw.RegisterPool(&domain.MigrationEvent{
		BaseMint: "not-a-valid-address",
		Pool:     genAddress(t),
	})
	if !errors.Is(err, ErrInvalidMint) {
		t.Errorf("Expected ErrInvalidMint, got %v", err)
	}
}

func TestToRaw(t *testing.T) {
	if got := toRaw(1.5, 6); got != 1_500_000 {
		t.Errorf("toRaw(1.5, 6) = %d, want 1500000", got)
	}
	if got := toRaw(-1, 6); got != 0 {
		t.Errorf("toRaw(-1, 6) = %d, want 0", got)
	}
}
