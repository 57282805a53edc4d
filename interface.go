package licensegate

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Provider is a read-only connection to a node. *ethclient.Client satisfies it.
type Provider interface {
	// CallContract executes a message call without creating a transaction
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// ChainID returns the id of the chain the node is on
	ChainID(ctx context.Context) (*big.Int, error)
}

// Backend is a connection able to submit transactions. *ethclient.Client satisfies it.
type Backend interface {
	Provider

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Wallet holds the key of a single account.
type Wallet interface {
	// Address returns the account the wallet signs for
	Address() common.Address

	// SignMessage returns an EIP-191 personal signature over msg
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)

	// SignTx signs tx for the given chain
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Connection is either read-only or signing. The variant is fixed when the
// value is built and gates every operation that sends or signs.
type Connection struct {
	provider Provider
	backend  Backend
	wallet   Wallet
}

// ReadOnly wraps a provider that can only query the chain.
func ReadOnly(p Provider) Connection {
	return Connection{provider: p}
}

// Signing wraps a backend and the wallet that signs for it.
func Signing(b Backend, w Wallet) Connection {
	if b == nil || w == nil {
		return Connection{provider: b}
	}
	return Connection{provider: b, backend: b, wallet: w}
}

// CanSign reports whether the connection carries a wallet.
func (c Connection) CanSign() bool {
	return c.wallet != nil
}
