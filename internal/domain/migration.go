package domain

// MigrationEvent is a decoded Migrate instruction payload emitted when a
// bonding-curve token graduates to an AMM pool. Field order matches the
// on-chain event layout; 32-byte account fields are base58 strings.
type MigrationEvent struct {
	Timestamp         int64  // on-chain event time (seconds)
	Index             uint16 // instruction index
	Creator           string
	BaseMint          string
	QuoteMint         string
	BaseMintDecimals  uint8
	QuoteMintDecimals uint8
	BaseAmountIn      uint64
	QuoteAmountIn     uint64
	PoolBaseAmount    uint64
	PoolQuoteAmount   uint64
	MinimumLiquidity  uint64
	InitialLiquidity  uint64
	LPTokenAmountOut  uint64
	PoolBump          uint8
	Pool              string
	LPMint            string
	UserBaseTokenAccount  string
	UserQuoteTokenAccount string

	// Transport metadata, not part of the decoded payload.
	TxSignature string
	Slot        int64
	DetectedAt  int64 // local detection time (unix ms)
}

// PoolKeys extracts the pool accounts needed to price and trade the
// event's base mint.
func (e *MigrationEvent) PoolKeys() PoolKeys {
	return PoolKeys{
		Address:           e.Pool,
		QuoteMint:         e.QuoteMint,
		BaseMintDecimals:  e.BaseMintDecimals,
		QuoteMintDecimals: e.QuoteMintDecimals,
		UserBase:          e.UserBaseTokenAccount,
		UserQuote:         e.UserQuoteTokenAccount,
	}
}
