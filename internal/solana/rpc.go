package solana

import "context"

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves account info by public key.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// SendTransaction submits a signed, base64-encoded transaction.
	// Returns the transaction signature.
	SendTransaction(ctx context.Context, signedTx string) (string, error)

	// GetLatestBlockhash retrieves a recent blockhash for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// GetHealth checks node health. Returns nil when the node is healthy.
	GetHealth(ctx context.Context) error

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}
