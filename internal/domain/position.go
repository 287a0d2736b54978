package domain

// TokenState is the lifecycle state of a tracked token.
type TokenState string

// Token lifecycle states. Transitions are strictly ordered per token:
// Detected -> Waiting -> Buying -> Holding -> Selling -> Closed.
const (
	StateDetected TokenState = "DETECTED"
	StateWaiting  TokenState = "WAITING"
	StateBuying   TokenState = "BUYING"
	StateHolding  TokenState = "HOLDING"
	StateSelling  TokenState = "SELLING"
	StateClosed   TokenState = "CLOSED"
)

// Position represents one open trade. It is created when a buy fills and
// mutated only by the monitor goroutine that owns it.
type Position struct {
	Mint            string     `json:"mint"`
	EntryPrice      float64    `json:"entry_price"`  // SOL per token at fill
	EntryAmount     float64    `json:"entry_amount"` // tokens received
	EntryTime       int64      `json:"entry_time"`   // unix ms
	EntryTxID       string     `json:"entry_tx_id"`
	CurrentPrice    float64    `json:"current_price"`
	ProfitLossRatio float64    `json:"profit_loss_ratio"` // (current-entry)/entry
	LastUpdated     int64      `json:"last_updated"`      // unix ms
	State           TokenState `json:"state"`
	Pool            PoolKeys   `json:"pool"`
}

// PoolKeys are the AMM pool accounts a position trades against. They
// are captured from the migration event and persisted with the
// position, so a restarted process can price and exit it without
// replaying the event.
type PoolKeys struct {
	Address           string `json:"address"`
	QuoteMint         string `json:"quote_mint"`
	BaseMintDecimals  uint8  `json:"base_mint_decimals"`
	QuoteMintDecimals uint8  `json:"quote_mint_decimals"`
	UserBase          string `json:"user_base"`
	UserQuote         string `json:"user_quote"`
}

// PriceObservation is one monitoring tick for an open position.
type PriceObservation struct {
	Mint            string
	TimestampMs     int64
	Price           float64
	ProfitLossRatio float64
}
