package contracts

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const licenseABIJSON = `[
	{"type":"function","name":"purchase","stateMutability":"payable",
	 "inputs":[{"name":"_projectID","type":"uint256"},{"name":"_recipient","type":"address"}],"outputs":[]},
	{"type":"function","name":"purchase","stateMutability":"payable",
	 "inputs":[{"name":"_token","type":"address"},{"name":"_projectID","type":"uint256"},{"name":"_recipient","type":"address"}],"outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPrice","stateMutability":"view",
	 "inputs":[{"name":"_projectID","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPrice","stateMutability":"view",
	 "inputs":[{"name":"_token","type":"address"},{"name":"_projectID","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getSupply","stateMutability":"view",
	 "inputs":[{"name":"_projectID","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getLimit","stateMutability":"view",
	 "inputs":[{"name":"_projectID","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const multicallABIJSON = `[
	{"type":"function","name":"aggregate","stateMutability":"payable",
	 "inputs":[{"name":"calls","type":"tuple[]","components":[{"name":"target","type":"address"},{"name":"callData","type":"bytes"}]}],
	 "outputs":[{"name":"blockNumber","type":"uint256"},{"name":"returnData","type":"bytes[]"}]}
]`

// Parsed ABIs.
var (
	LicenseABI   = mustParse(licenseABIJSON)
	ERC20ABI     = mustParse(erc20ABIJSON)
	MulticallABI = mustParse(multicallABIJSON)
)

// License contract methods. The two overloads of purchase and getPrice are
// bound by canonical signature so callers never pick a selector by name.
var (
	PurchaseNative = mustMethod(LicenseABI, "purchase(uint256,address)")
	PurchaseToken  = mustMethod(LicenseABI, "purchase(address,uint256,address)")
	BalanceOf      = mustMethod(LicenseABI, "balanceOf(address,uint256)")
	PriceNative    = mustMethod(LicenseABI, "getPrice(uint256)")
	PriceToken     = mustMethod(LicenseABI, "getPrice(address,uint256)")
	GetSupply      = mustMethod(LicenseABI, "getSupply(uint256)")
	GetLimit       = mustMethod(LicenseABI, "getLimit(uint256)")
)

// ERC-20 methods.
var (
	ERC20Approve   = mustMethod(ERC20ABI, "approve(address,uint256)")
	ERC20BalanceOf = mustMethod(ERC20ABI, "balanceOf(address)")
	ERC20Allowance = mustMethod(ERC20ABI, "allowance(address,address)")
)

// Aggregate is Multicall3 aggregate((address,bytes)[]).
var Aggregate = mustMethod(MulticallABI, "aggregate((address,bytes)[])")

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("contracts: invalid abi: %v", err))
	}
	return parsed
}

func mustMethod(parsed abi.ABI, sig string) abi.Method {
	for _, m := range parsed.Methods {
		if m.Sig == sig {
			return m
		}
	}
	panic("contracts: no method " + sig)
}

// Pack encodes a call to method, selector first.
func Pack(method abi.Method, args ...interface{}) ([]byte, error) {
	encoded, err := method.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method.Sig, err)
	}
	return append(append([]byte{}, method.ID...), encoded...), nil
}

// Unpack decodes the return data of method.
func Unpack(method abi.Method, data []byte) ([]interface{}, error) {
	out, err := method.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Sig, err)
	}
	return out, nil
}

// UnpackUint256 decodes a method whose single output is a uint256.
func UnpackUint256(method abi.Method, data []byte) (*big.Int, error) {
	out, err := Unpack(method, data)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method.Sig, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method.Sig, out[0])
	}
	return v, nil
}

// Call is one entry of a multicall batch.
type Call struct {
	Target   common.Address
	CallData []byte
}

// PackAggregate encodes a Multicall3 aggregate call over calls.
func PackAggregate(calls []Call) ([]byte, error) {
	return Pack(Aggregate, calls)
}

// UnpackAggregate decodes the aggregate result into the block number and the
// per-call return data in call order.
func UnpackAggregate(data []byte) (*big.Int, [][]byte, error) {
	out, err := Unpack(Aggregate, data)
	if err != nil {
		return nil, nil, err
	}
	if len(out) != 2 {
		return nil, nil, fmt.Errorf("unpack %s: expected 2 values, got %d", Aggregate.Sig, len(out))
	}
	block, ok := out[0].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("unpack %s: unexpected block type %T", Aggregate.Sig, out[0])
	}
	results, ok := out[1].([][]byte)
	if !ok {
		return nil, nil, fmt.Errorf("unpack %s: unexpected result type %T", Aggregate.Sig, out[1])
	}
	return block, results, nil
}
