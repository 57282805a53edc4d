package contracts

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLicenseAddressSupported(t *testing.T) {
	for _, id := range SupportedChainIDs() {
		addr, err := LicenseAddress(id)
		require.NoError(t, err, "chain %d", id)
		assert.NotEqual(t, common.Address{}, addr, "chain %d", id)

		mc, err := MulticallAddress(id)
		require.NoError(t, err)
		assert.Equal(t, Multicall3, mc)
	}
	assert.Equal(t, []uint64{137, 1337, 80001}, SupportedChainIDs())
}

func TestLicenseAddressUnsupported(t *testing.T) {
	for _, id := range []uint64{0, 1, 5, 56, 138, 80002, 11155111} {
		_, err := LicenseAddress(id)
		assert.True(t, errors.Is(err, ErrUnsupportedNetwork), "chain %d", id)
		assert.False(t, IsSupported(id))
	}
}

func TestMethodSelectors(t *testing.T) {
	tests := []struct {
		name     string
		selector []byte
		want     string
	}{
		{"balanceOf(address,uint256)", BalanceOf.ID, "0x00fdd58e"},
		{"approve", ERC20Approve.ID, "0x095ea7b3"},
		{"allowance", ERC20Allowance.ID, "0xdd62ed3e"},
		{"erc20 balanceOf", ERC20BalanceOf.ID, "0x70a08231"},
		{"aggregate", Aggregate.ID, "0x252dba42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hexutil.Encode(tt.selector))
		})
	}
}

func TestOverloadsAreDistinct(t *testing.T) {
	assert.NotEqual(t, PurchaseNative.ID, PurchaseToken.ID)
	assert.NotEqual(t, PriceNative.ID, PriceToken.ID)
	assert.Len(t, PurchaseNative.Inputs, 2)
	assert.Len(t, PurchaseToken.Inputs, 3)
	assert.Len(t, PriceNative.Inputs, 1)
	assert.Len(t, PriceToken.Inputs, 2)
}

func TestPackUnpackAggregate(t *testing.T) {
	license := common.HexToAddress("0x3cE643dc61bb40bB0557316539f4A93016051b81")
	supplyCall, err := Pack(GetSupply, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, GetSupply.ID, supplyCall[:4])
	assert.Len(t, supplyCall, 36)

	data, err := PackAggregate([]Call{{Target: license, CallData: supplyCall}})
	require.NoError(t, err)
	assert.Equal(t, Aggregate.ID, data[:4])

	args, err := Aggregate.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, args, 1)

	ret, err := Aggregate.Outputs.Pack(big.NewInt(42), [][]byte{{0x01}, {0x02, 0x03}})
	require.NoError(t, err)
	block, results, err := UnpackAggregate(ret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), block.Int64())
	assert.Equal(t, [][]byte{{0x01}, {0x02, 0x03}}, results)
}

func TestUnpackUint256(t *testing.T) {
	ret, err := PriceNative.Outputs.Pack(big.NewInt(1e16))
	require.NoError(t, err)
	v, err := UnpackUint256(PriceNative, ret)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1e16), v)

	_, err = UnpackUint256(PriceNative, nil)
	assert.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0.01", FormatUnits(big.NewInt(1e16), 18))
	assert.Equal(t, "5", FormatUnits(big.NewInt(5_000_000), 6))
	assert.Equal(t, "0", FormatUnits(nil, 18))

	n, err := Lookup(137)
	require.NoError(t, err)
	assert.Equal(t, "1.5 MATIC", n.FormatNative(big.NewInt(1_500_000_000_000_000_000)))
}
