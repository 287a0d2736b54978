package stub

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"solana-migration-bot/internal/solana"
)

// ErrNotFound is returned when a transaction or account is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Transactions map[string]*solana.Transaction
	Accounts     map[string]*solana.AccountInfo
	Slot         int64
	Healthy      bool

	// SendErr, when set, is returned from SendTransaction.
	SendErr error

	sendCount atomic.Int64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Accounts:     make(map[string]*solana.AccountInfo),
		Healthy:      true,
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetAccountInfo retrieves account info by pubkey from the stub store.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	return info, nil
}

// SendTransaction records the send and returns a synthetic signature.
func (c *RPCClient) SendTransaction(_ context.Context, _ string) (string, error) {
	if c.SendErr != nil {
		return "", c.SendErr
	}
	n := c.sendCount.Add(1)
	return fmt.Sprintf("stub-sig-%d", n), nil
}

// GetLatestBlockhash returns a fixed blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (string, error) {
	return "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", nil
}

// GetHealth reports the configured health state.
func (c *RPCClient) GetHealth(_ context.Context) error {
	if !c.Healthy {
		return errors.New("node unhealthy")
	}
	return nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	return c.Slot, nil
}

// SendCount returns how many transactions were submitted.
func (c *RPCClient) SendCount() int64 {
	return c.sendCount.Load()
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddAccount adds account info for a pubkey to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.Accounts[pubkey] = info
}

var _ solana.RPCClient = (*RPCClient)(nil)
