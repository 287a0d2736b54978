package domain

// CompletedTrade records the final outcome for one token, whether the buy
// filled and was later closed or never filled at all.
type CompletedTrade struct {
	Mint            string  `json:"mint"`
	EntryPrice      float64 `json:"entry_price"`
	ExitPrice       float64 `json:"exit_price"`
	Amount          float64 `json:"amount"`
	ProfitLossRatio float64 `json:"profit_loss_ratio"`
	Outcome         string  `json:"outcome"`
	EntryTime       int64   `json:"entry_time"` // unix ms, zero for BUY_FAILED
	ExitTime        int64   `json:"exit_time"`  // unix ms
	EntryTxID       string  `json:"entry_tx_id,omitempty"`
	ExitTxID        string  `json:"exit_tx_id,omitempty"`
}

// Trade outcome codes.
const (
	OutcomeTakeProfit = "TAKE_PROFIT"
	OutcomeStopLoss   = "STOP_LOSS"
	OutcomeBuyFailed  = "BUY_FAILED"
)
