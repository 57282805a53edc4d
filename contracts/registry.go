// Package contracts holds the deployed addresses and ABI fragments of the
// contracts the license client talks to: the software license contract,
// ERC-20 payment tokens and the Multicall3 aggregator.
package contracts

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedNetwork is returned for chain ids outside the registry.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// Network describes a chain the license contract is deployed on.
type Network struct {
	ChainID uint64
	Name    string

	// Currency is the symbol of the native coin used by purchase(uint256,address).
	Currency string
	Decimals int32

	License   common.Address
	Multicall common.Address
}

// Multicall3 is deployed at the same address on every EVM chain.
var Multicall3 = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

var networks = map[uint64]Network{
	137: {
		ChainID:   137,
		Name:      "polygon",
		Currency:  "MATIC",
		Decimals:  18,
		License:   common.HexToAddress("0x3cE643dc61bb40bB0557316539f4A93016051b81"),
		Multicall: Multicall3,
	},
	80001: {
		ChainID:   80001,
		Name:      "mumbai",
		Currency:  "MATIC",
		Decimals:  18,
		License:   common.HexToAddress("0x3cE643dc61bb40bB0557316539f4A93016051b81"),
		Multicall: Multicall3,
	},
	// deterministic ganache deployment used in local development
	1337: {
		ChainID:   1337,
		Name:      "ganache",
		Currency:  "ETH",
		Decimals:  18,
		License:   common.HexToAddress("0x5b1869D9A4C187F2EAa108f3062412ecf0526b24"),
		Multicall: Multicall3,
	},
}

// Lookup returns the registry entry for chainID.
func Lookup(chainID uint64) (Network, error) {
	n, ok := networks[chainID]
	if !ok {
		return Network{}, fmt.Errorf("%w: chainId=%d", ErrUnsupportedNetwork, chainID)
	}
	return n, nil
}

// LicenseAddress returns the license contract address deployed on chainID.
func LicenseAddress(chainID uint64) (common.Address, error) {
	n, err := Lookup(chainID)
	if err != nil {
		return common.Address{}, err
	}
	return n.License, nil
}

// MulticallAddress returns the multicall aggregator address for chainID.
func MulticallAddress(chainID uint64) (common.Address, error) {
	n, err := Lookup(chainID)
	if err != nil {
		return common.Address{}, err
	}
	return n.Multicall, nil
}

// IsSupported reports whether chainID is in the registry.
func IsSupported(chainID uint64) bool {
	_, ok := networks[chainID]
	return ok
}

// SupportedChainIDs returns the registered chain ids in ascending order.
func SupportedChainIDs() []uint64 {
	ids := make([]uint64, 0, len(networks))
	for id := range networks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FormatUnits renders amount, given in the smallest unit, as a decimal with
// the given number of decimals, e.g. 1e16 wei with 18 decimals is "0.01".
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// FormatNative renders amount of the network's native coin with its symbol.
func (n Network) FormatNative(amount *big.Int) string {
	return FormatUnits(amount, n.Decimals) + " " + n.Currency
}
