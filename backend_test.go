package licensegate

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/layer-3/licensegate/contracts"
)

var errReverted = errors.New("execution reverted")

type fakeToken struct {
	price      *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// fakeChain is an in-memory Backend that answers license, ERC-20 and
// multicall calls by selector.
type fakeChain struct {
	mu sync.Mutex

	chainID  *big.Int
	chainErr error
	baseFee  *big.Int

	license   common.Address
	multicall common.Address

	price    *big.Int
	supply   *big.Int
	limit    *big.Int
	licenses map[common.Address]*big.Int
	native   map[common.Address]*big.Int
	tokens   map[common.Address]*fakeToken

	revertApprove bool

	calls        int
	chainIDCalls int
	sent         []*types.Transaction
	receipts     map[common.Hash]*types.Receipt
}

func newFakeChain(chainID uint64) *fakeChain {
	license, _ := contracts.LicenseAddress(chainID)
	return &fakeChain{
		chainID:   new(big.Int).SetUint64(chainID),
		baseFee:   big.NewInt(30_000_000_000),
		license:   license,
		multicall: contracts.Multicall3,
		price:     big.NewInt(1e16),
		supply:    big.NewInt(0),
		limit:     big.NewInt(100),
		licenses:  map[common.Address]*big.Int{},
		native:    map[common.Address]*big.Int{},
		tokens:    map[common.Address]*fakeToken{},
		receipts:  map[common.Hash]*types.Receipt{},
	}
}

func (f *fakeChain) addToken(token common.Address, price *big.Int) *fakeToken {
	t := &fakeToken{
		price:      price,
		balances:   map[common.Address]*big.Int{},
		allowances: map[common.Address]map[common.Address]*big.Int{},
	}
	f.tokens[token] = t
	return t
}

func (t *fakeToken) allowance(owner, spender common.Address) *big.Int {
	if v := t.allowances[owner][spender]; v != nil {
		return v
	}
	return new(big.Int)
}

func (t *fakeToken) setAllowance(owner, spender common.Address, amount *big.Int) {
	if t.allowances[owner] == nil {
		t.allowances[owner] = map[common.Address]*big.Int{}
	}
	t.allowances[owner][spender] = amount
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func is(data []byte, m abi.Method) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], m.ID)
}

func (f *fakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if call.To == nil {
		return nil, errReverted
	}
	return f.dispatch(*call.To, call.Data)
}

func (f *fakeChain) dispatch(to common.Address, data []byte) ([]byte, error) {
	switch {
	case to == f.multicall && is(data, contracts.Aggregate):
		args, err := contracts.Aggregate.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		calls := *abi.ConvertType(args[0], new([]contracts.Call)).(*[]contracts.Call)
		results := make([][]byte, len(calls))
		for i, c := range calls {
			if results[i], err = f.dispatch(c.Target, c.CallData); err != nil {
				return nil, err
			}
		}
		return contracts.Aggregate.Outputs.Pack(big.NewInt(1), results)

	case to == f.license:
		switch {
		case is(data, contracts.PriceNative):
			return contracts.PriceNative.Outputs.Pack(f.price)
		case is(data, contracts.PriceToken):
			args, err := contracts.PriceToken.Inputs.Unpack(data[4:])
			if err != nil {
				return nil, err
			}
			t, ok := f.tokens[args[0].(common.Address)]
			if !ok {
				return nil, errReverted
			}
			return contracts.PriceToken.Outputs.Pack(t.price)
		case is(data, contracts.BalanceOf):
			args, err := contracts.BalanceOf.Inputs.Unpack(data[4:])
			if err != nil {
				return nil, err
			}
			return contracts.BalanceOf.Outputs.Pack(orZero(f.licenses[args[0].(common.Address)]))
		case is(data, contracts.GetSupply):
			return contracts.GetSupply.Outputs.Pack(f.supply)
		case is(data, contracts.GetLimit):
			return contracts.GetLimit.Outputs.Pack(f.limit)
		}

	default:
		t, ok := f.tokens[to]
		if !ok {
			break
		}
		switch {
		case is(data, contracts.ERC20BalanceOf):
			args, err := contracts.ERC20BalanceOf.Inputs.Unpack(data[4:])
			if err != nil {
				return nil, err
			}
			return contracts.ERC20BalanceOf.Outputs.Pack(orZero(t.balances[args[0].(common.Address)]))
		case is(data, contracts.ERC20Allowance):
			args, err := contracts.ERC20Allowance.Inputs.Unpack(data[4:])
			if err != nil {
				return nil, err
			}
			return contracts.ERC20Allowance.Outputs.Pack(t.allowance(args[0].(common.Address), args[1].(common.Address)))
		}
	}
	return nil, errReverted
}

func (f *fakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainIDCalls++
	return f.chainID, f.chainErr
}

func (f *fakeChain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return orZero(f.native[account]), nil
}

func (f *fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeChain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: f.baseFee}, nil
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(50_000_000_000), nil
}

func (f *fakeChain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeChain) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 150_000, nil
}

// SendTransaction applies approvals and purchases and mines the tx at once.
func (f *fakeChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	from, err := types.Sender(types.LatestSignerForChainID(f.chainID), tx)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, tx)

	status := types.ReceiptStatusSuccessful
	data := tx.Data()
	switch {
	case is(data, contracts.ERC20Approve):
		if f.revertApprove {
			status = types.ReceiptStatusFailed
			break
		}
		args, err := contracts.ERC20Approve.Inputs.Unpack(data[4:])
		if err != nil {
			return err
		}
		f.tokens[*tx.To()].setAllowance(from, args[0].(common.Address), args[1].(*big.Int))
	case is(data, contracts.PurchaseNative):
		args, err := contracts.PurchaseNative.Inputs.Unpack(data[4:])
		if err != nil {
			return err
		}
		recipient := args[1].(common.Address)
		f.licenses[recipient] = new(big.Int).Add(orZero(f.licenses[recipient]), big.NewInt(1))
	case is(data, contracts.PurchaseToken):
		args, err := contracts.PurchaseToken.Inputs.Unpack(data[4:])
		if err != nil {
			return err
		}
		recipient := args[2].(common.Address)
		f.licenses[recipient] = new(big.Int).Add(orZero(f.licenses[recipient]), big.NewInt(1))
	}

	f.receipts[tx.Hash()] = &types.Receipt{Status: status, TxHash: tx.Hash(), BlockNumber: big.NewInt(2)}
	return nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeChain) sentTo(to common.Address, m abi.Method) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, tx := range f.sent {
		if tx.To() != nil && *tx.To() == to && is(tx.Data(), m) {
			n++
		}
	}
	return n
}

func (f *fakeChain) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
