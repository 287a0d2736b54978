package gateway

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"filippo.io/edwards25519"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"solana-migration-bot/internal/domain"
	"solana-migration-bot/internal/migration"
	"solana-migration-bot/internal/solana"
)

// Anchor instruction discriminators for the AMM's buy and sell ops.
var (
	buyInstructionDiscriminator  = [8]byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	sellInstructionDiscriminator = [8]byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// Pool account layout offsets. The pool account stores its token
// vault addresses after the discriminator, bump, index, creator and
// three mint pubkeys.
const (
	poolBaseVaultOffset  = 8 + 1 + 2 + 32 + 32 + 32
	poolQuoteVaultOffset = poolBaseVaultOffset + 32
	poolAccountMinLen    = poolQuoteVaultOffset + 32

	// SPL token accounts keep the raw amount as u64 LE at offset 64.
	tokenAmountOffset = 64
	tokenAccountMin   = tokenAmountOffset + 8
)

// poolInfo is the per-mint pool state captured at registration.
type poolInfo struct {
	pool          string
	baseMint      string
	quoteMint     string
	baseDecimals  uint8
	quoteDecimals uint8
	userBase      string
	userQuote     string

	// vault addresses resolved lazily from the pool account
	baseVault  string
	quoteVault string
}

// CurveGatewayOptions configures a CurveGateway.
type CurveGatewayOptions struct {
	// RPC is the Solana RPC client used for account reads and
	// transaction submission.
	RPC solana.RPCClient
	// WalletKey is the base58-encoded ed25519 private key of the
	// trading wallet.
	WalletKey string
	// Logger receives gateway messages. Defaults to log.Default().
	Logger *log.Logger
}

// CurveGateway executes swaps against the migration AMM. Prices come
// straight from the pool's token vault balances; no quoting service
// sits in between.
type CurveGateway struct {
	rpc    solana.RPCClient
	wallet solanago.PrivateKey
	logger *log.Logger

	mu    sync.RWMutex
	pools map[string]*poolInfo // keyed by base mint
}

// NewCurveGateway creates a gateway trading with the given wallet.
func NewCurveGateway(opts CurveGatewayOptions) (*CurveGateway, error) {
	if opts.RPC == nil {
		return nil, fmt.Errorf("rpc client is required")
	}

	wallet, err := solanago.PrivateKeyFromBase58(opts.WalletKey)
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &CurveGateway{
		rpc:    opts.RPC,
		wallet: wallet,
		logger: logger,
		pools:  make(map[string]*poolInfo),
	}, nil
}

var _ ExecutionGateway = (*CurveGateway)(nil)

// RegisterPool records the pool created by a migration event so
// subsequent trades and price lookups on its base mint can find it.
func (g *CurveGateway) RegisterPool(ev *domain.MigrationEvent) error {
	if ev == nil {
		return ErrInvalidMint
	}
	return g.RegisterPoolKeys(ev.BaseMint, ev.PoolKeys())
}

// RegisterPoolKeys records a pool from keys persisted with a position,
// the restart counterpart of RegisterPool.
func (g *CurveGateway) RegisterPoolKeys(mint string, keys domain.PoolKeys) error {
	if err := validateAddress(mint); err != nil {
		return fmt.Errorf("base mint %q: %w", mint, err)
	}
	if err := validateAddress(keys.Address); err != nil {
		return fmt.Errorf("pool %q: %w", keys.Address, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.pools[mint] = &poolInfo{
		pool:          keys.Address,
		baseMint:      mint,
		quoteMint:     keys.QuoteMint,
		baseDecimals:  keys.BaseMintDecimals,
		quoteDecimals: keys.QuoteMintDecimals,
		userBase:      keys.UserBase,
		userQuote:     keys.UserQuote,
	}
	return nil
}

// validateAddress checks that an address is 32 bytes of base58 and a
// valid ed25519 curve point.
func validateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return ErrInvalidMint
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return ErrInvalidMint
	}
	return nil
}

// GetCurrentPrice returns the pool price for a mint in quote tokens
// per base token, adjusted for both mints' decimals.
func (g *CurveGateway) GetCurrentPrice(ctx context.Context, mint string) (float64, error) {
	p, err := g.lookupPool(mint)
	if err != nil {
		return 0, err
	}

	if err := g.resolveVaults(ctx, p); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	baseRaw, err := g.readTokenAmount(ctx, p.baseVault)
	if err != nil {
		return 0, fmt.Errorf("%w: base vault: %v", ErrPriceUnavailable, err)
	}
	quoteRaw, err := g.readTokenAmount(ctx, p.quoteVault)
	if err != nil {
		return 0, fmt.Errorf("%w: quote vault: %v", ErrPriceUnavailable, err)
	}

	if baseRaw == 0 {
		return 0, fmt.Errorf("%w: empty base reserve", ErrPriceUnavailable)
	}

	base := float64(baseRaw) / math.Pow10(int(p.baseDecimals))
	quote := float64(quoteRaw) / math.Pow10(int(p.quoteDecimals))
	return quote / base, nil
}

// Buy spends notional quote tokens on the mint's pool.
func (g *CurveGateway) Buy(ctx context.Context, mint string, notional, slippage float64) (*TradeResult, error) {
	p, err := g.lookupPool(mint)
	if err != nil {
		return nil, err
	}

	price, err := g.GetCurrentPrice(ctx, mint)
	if err != nil {
		return nil, err
	}

	baseOut := notional / price
	maxQuoteIn := notional * (1 + slippage)

	sig, err := g.submitSwap(ctx, p, buyInstructionDiscriminator,
		toRaw(baseOut, p.baseDecimals), toRaw(maxQuoteIn, p.quoteDecimals))
	if err != nil {
		return nil, fmt.Errorf("submit buy: %w", err)
	}

	return &TradeResult{
		TxID:      sig,
		Price:     price,
		Amount:    baseOut,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Sell disposes amount base tokens on the mint's pool.
func (g *CurveGateway) Sell(ctx context.Context, mint string, amount, slippage float64) (*TradeResult, error) {
	p, err := g.lookupPool(mint)
	if err != nil {
		return nil, err
	}

	price, err := g.GetCurrentPrice(ctx, mint)
	if err != nil {
		return nil, err
	}

	minQuoteOut := amount * price * (1 - slippage)

	sig, err := g.submitSwap(ctx, p, sellInstructionDiscriminator,
		toRaw(amount, p.baseDecimals), toRaw(minQuoteOut, p.quoteDecimals))
	if err != nil {
		return nil, fmt.Errorf("submit sell: %w", err)
	}

	return &TradeResult{
		TxID:      sig,
		Price:     price,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (g *CurveGateway) lookupPool(mint string) (*poolInfo, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.pools[mint]
	if !ok {
		return nil, ErrUnknownPool
	}
	return p, nil
}

// resolveVaults reads the pool account and extracts its token vault
// addresses. Resolved vaults are cached on the poolInfo.
func (g *CurveGateway) resolveVaults(ctx context.Context, p *poolInfo) error {
	g.mu.RLock()
	resolved := p.baseVault != "" && p.quoteVault != ""
	g.mu.RUnlock()
	if resolved {
		return nil
	}

	info, err := g.rpc.GetAccountInfo(ctx, p.pool)
	if err != nil {
		return fmt.Errorf("fetch pool account: %w", err)
	}
	if info == nil {
		return fmt.Errorf("pool account %s not found", p.pool)
	}

	raw, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return fmt.Errorf("decode pool account data: %w", err)
	}
	if len(raw) < poolAccountMinLen {
		return fmt.Errorf("pool account data too short: %d bytes", len(raw))
	}

	g.mu.Lock()
	p.baseVault = base58.Encode(raw[poolBaseVaultOffset : poolBaseVaultOffset+32])
	p.quoteVault = base58.Encode(raw[poolQuoteVaultOffset : poolQuoteVaultOffset+32])
	g.mu.Unlock()
	return nil
}

// readTokenAmount reads the raw u64 amount of an SPL token account.
func (g *CurveGateway) readTokenAmount(ctx context.Context, account string) (uint64, error) {
	info, err := g.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, fmt.Errorf("token account %s not found", account)
	}

	raw, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return 0, fmt.Errorf("decode token account data: %w", err)
	}
	if len(raw) < tokenAccountMin {
		return 0, fmt.Errorf("token account data too short: %d bytes", len(raw))
	}

	return binary.LittleEndian.Uint64(raw[tokenAmountOffset : tokenAmountOffset+8]), nil
}

// submitSwap assembles, signs and submits a single-instruction swap.
func (g *CurveGateway) submitSwap(ctx context.Context, p *poolInfo, disc [8]byte, baseAmount, quoteLimit uint64) (string, error) {
	blockhash, err := g.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}
	hash, err := solanago.HashFromBase58(blockhash)
	if err != nil {
		return "", fmt.Errorf("parse blockhash: %w", err)
	}

	data := make([]byte, 24)
	copy(data[:8], disc[:])
	binary.LittleEndian.PutUint64(data[8:16], baseAmount)
	binary.LittleEndian.PutUint64(data[16:24], quoteLimit)

	program := solanago.MustPublicKeyFromBase58(migration.MigrationProgram)
	owner := g.wallet.PublicKey()

	metas := solanago.AccountMetaSlice{
		solanago.NewAccountMeta(solanago.MustPublicKeyFromBase58(p.pool), true, false),
		solanago.NewAccountMeta(owner, true, true),
		solanago.NewAccountMeta(solanago.MustPublicKeyFromBase58(p.baseMint), false, false),
		solanago.NewAccountMeta(solanago.MustPublicKeyFromBase58(p.quoteMint), false, false),
		solanago.NewAccountMeta(solanago.MustPublicKeyFromBase58(p.userBase), true, false),
		solanago.NewAccountMeta(solanago.MustPublicKeyFromBase58(p.userQuote), true, false),
		solanago.NewAccountMeta(solanago.MustPublicKeyFromBase58(p.baseVault), true, false),
		solanago.NewAccountMeta(solanago.MustPublicKeyFromBase58(p.quoteVault), true, false),
		solanago.NewAccountMeta(solanago.TokenProgramID, false, false),
		solanago.NewAccountMeta(solanago.SystemProgramID, false, false),
	}

	inst := solanago.NewInstruction(program, metas, data)

	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{inst},
		hash,
		solanago.TransactionPayer(owner),
	)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(owner) {
			return &g.wallet
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	encoded, err := tx.ToBase64()
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}

	return g.rpc.SendTransaction(ctx, encoded)
}

// toRaw converts a decimal token amount to raw integer units.
func toRaw(amount float64, decimals uint8) uint64 {
	if amount < 0 {
		return 0
	}
	return uint64(amount * math.Pow10(int(decimals)))
}
