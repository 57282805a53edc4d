package licensegate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/layer-3/licensegate/contracts"
)

// ParseProductID parses a product id given in decimal or 0x-prefixed hex.
func ParseProductID(s string) (*big.Int, error) {
	id, ok := math.ParseBig256(s)
	if !ok || s == "" || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}

// ProductInfo is a snapshot of a product's sale state.
type ProductInfo struct {
	ID     *big.Int
	Price  *big.Int
	Supply *big.Int
	Limit  *big.Int
}

// Available reports whether licenses are left to sell.
func (p ProductInfo) Available() bool {
	return p.Supply.Cmp(p.Limit) < 0
}

// ProductPrice returns the native coin price of a license.
func (c *Client) ProductPrice(ctx context.Context, productID *big.Int) (*big.Int, error) {
	return c.callUint(ctx, c.license, contracts.PriceNative, productID)
}

// ProductTokenPrice returns the price of a license in the given ERC-20 token.
func (c *Client) ProductTokenPrice(ctx context.Context, token common.Address, productID *big.Int) (*big.Int, error) {
	return c.callUint(ctx, c.license, contracts.PriceToken, token, productID)
}

// ProductBalance returns how many license tokens of the product owner holds.
func (c *Client) ProductBalance(ctx context.Context, owner common.Address, productID *big.Int) (*big.Int, error) {
	return c.callUint(ctx, c.license, contracts.BalanceOf, owner, productID)
}

// HasLicense reports whether owner holds a license for the product.
func (c *Client) HasLicense(ctx context.Context, owner common.Address, productID *big.Int) (bool, error) {
	balance, err := c.ProductBalance(ctx, owner, productID)
	if err != nil {
		return false, err
	}
	return balance.Sign() > 0, nil
}

// SupplyAvailable reports whether supply < limit. Both values are read in a
// single multicall so they come from the same block.
func (c *Client) SupplyAvailable(ctx context.Context, productID *big.Int) (bool, error) {
	values, err := c.aggregateUints(ctx, productID, contracts.GetSupply, contracts.GetLimit)
	if err != nil {
		return false, err
	}
	return values[0].Cmp(values[1]) < 0, nil
}

// ProductInfo reads price, supply and limit of a product in one round trip.
func (c *Client) ProductInfo(ctx context.Context, productID *big.Int) (*ProductInfo, error) {
	values, err := c.aggregateUints(ctx, productID, contracts.PriceNative, contracts.GetSupply, contracts.GetLimit)
	if err != nil {
		return nil, err
	}
	return &ProductInfo{
		ID:     new(big.Int).Set(productID),
		Price:  values[0],
		Supply: values[1],
		Limit:  values[2],
	}, nil
}

// TokenBalance returns the ERC-20 balance of owner.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return c.callUint(ctx, token, contracts.ERC20BalanceOf, owner)
}

// TokenAllowance returns how much of owner's token the license contract may spend.
func (c *Client) TokenAllowance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return c.callUint(ctx, token, contracts.ERC20Allowance, owner, c.license)
}

func (c *Client) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if c.conn.provider == nil {
		return nil, fmt.Errorf("%w: no provider", ErrNetworkResolution)
	}
	return c.conn.provider.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (c *Client) callUint(ctx context.Context, to common.Address, method abi.Method, args ...interface{}) (*big.Int, error) {
	data, err := contracts.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, to, data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method.Sig, err)
	}
	return contracts.UnpackUint256(method, out)
}

// aggregateUints calls each single-argument license method with productID
// through the multicall aggregator and returns the results in order.
func (c *Client) aggregateUints(ctx context.Context, productID *big.Int, methods ...abi.Method) ([]*big.Int, error) {
	calls := make([]contracts.Call, len(methods))
	for i, m := range methods {
		data, err := contracts.Pack(m, productID)
		if err != nil {
			return nil, err
		}
		calls[i] = contracts.Call{Target: c.license, CallData: data}
	}

	data, err := contracts.PackAggregate(calls)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, c.multicall, data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", contracts.Aggregate.Sig, err)
	}
	_, results, err := contracts.UnpackAggregate(out)
	if err != nil {
		return nil, err
	}
	if len(results) != len(methods) {
		return nil, fmt.Errorf("multicall returned %d results for %d calls", len(results), len(methods))
	}

	values := make([]*big.Int, len(methods))
	for i, m := range methods {
		if values[i], err = contracts.UnpackUint256(m, results[i]); err != nil {
			return nil, err
		}
	}
	return values, nil
}
