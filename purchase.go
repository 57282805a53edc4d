package licensegate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/layer-3/licensegate/contracts"
)

// PurchaseProduct buys a license for recipient, paying the native price from
// the signer. The returned transaction is pending; use WaitMined to await it.
//
// Supply and balance are checked before sending so common failures get a
// clear error. The contract still decides, and may revert.
func (c *Client) PurchaseProduct(ctx context.Context, productID *big.Int, recipient common.Address) (*types.Transaction, error) {
	if !c.conn.CanSign() {
		return nil, ErrSignerRequired
	}
	if err := c.requireSupply(ctx, productID); err != nil {
		return nil, err
	}

	price, err := c.ProductPrice(ctx, productID)
	if err != nil {
		return nil, err
	}

	from := c.conn.wallet.Address()
	balance, err := c.conn.backend.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Cmp(price) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, price)
	}

	data, err := contracts.Pack(contracts.PurchaseNative, productID, recipient)
	if err != nil {
		return nil, err
	}
	return c.transact(ctx, c.license, price, data)
}

// PurchaseProductToken buys a license for recipient, paying in an ERC-20
// token. When the license contract's allowance is below the price an
// approval for the full price is sent and mined first.
func (c *Client) PurchaseProductToken(ctx context.Context, token common.Address, productID *big.Int, recipient common.Address) (*types.Transaction, error) {
	if !c.conn.CanSign() {
		return nil, ErrSignerRequired
	}
	if err := c.requireSupply(ctx, productID); err != nil {
		return nil, err
	}

	price, err := c.ProductTokenPrice(ctx, token, productID)
	if err != nil {
		return nil, err
	}

	from := c.conn.wallet.Address()
	balance, err := c.TokenBalance(ctx, token, from)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(price) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientTokenBalance, balance, price)
	}

	allowance, err := c.TokenAllowance(ctx, token, from)
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(price) < 0 {
		// approve overwrites the allowance, so approving only the shortfall
		// would leave it below price
		if err := c.approve(ctx, token, price); err != nil {
			return nil, err
		}
	}

	data, err := contracts.Pack(contracts.PurchaseToken, token, productID, recipient)
	if err != nil {
		return nil, err
	}
	return c.transact(ctx, c.license, nil, data)
}

func (c *Client) requireSupply(ctx context.Context, productID *big.Int) error {
	available, err := c.SupplyAvailable(ctx, productID)
	if err != nil {
		return err
	}
	if !available {
		return fmt.Errorf("%w: product %s", ErrSupplyExhausted, productID)
	}
	return nil
}

func (c *Client) approve(ctx context.Context, token common.Address, amount *big.Int) error {
	data, err := contracts.Pack(contracts.ERC20Approve, c.license, amount)
	if err != nil {
		return err
	}
	tx, err := c.transact(ctx, token, nil, data)
	if err != nil {
		return fmt.Errorf("failed to approve: %w", err)
	}
	receipt, err := c.WaitMined(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for approval: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: approval %s reverted", ErrTransactionFailed, tx.Hash().Hex())
	}
	return nil
}

// transact signs and broadcasts a call to the given contract. Fees follow
// EIP-1559 when the chain reports a base fee.
func (c *Client) transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	backend, wallet := c.conn.backend, c.conn.wallet
	from := wallet.Address()
	if value == nil {
		value = new(big.Int)
	}

	chainID, err := c.signingChainID(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	var tx *types.Transaction
	if head.BaseFee != nil {
		tip, err := backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest tip: %w", err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &to,
			Value:     value,
			Data:      data,
		})
	} else {
		gasPrice, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &to,
			Value:    value,
			Data:     data,
		})
	}

	signed, err := wallet.SignTx(ctx, tx, chainID)
	if err != nil {
		return nil, err
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Debug("transaction sent",
		"hash", signed.Hash().Hex(),
		"from", from.Hex(),
		"to", to.Hex(),
		"value", value.String(),
		"nonce", nonce)
	return signed, nil
}

// WaitMined blocks until tx is included in a block or ctx is done.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if !c.conn.CanSign() {
		return nil, ErrSignerRequired
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.conn.backend.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get receipt: %w", err)
		}

		c.logger.Debug("transaction not yet mined", "hash", tx.Hash().Hex())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
