package persistence

import (
	"math/big"
	"testing"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Amounts above 2^64 must survive JSON encoding unchanged.
func TestReceipt_LargeAmountSurvivesEncoding(t *testing.T) {
	amount, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	require.True(t, ok)

	original := &types.WhitelistReceipt{
		ID:           "req-1",
		FractionID:   types.FractionIDFromUint64(1),
		Wallet:       common.HexToAddress("0x00000000000000000000000000000000000000b0"),
		Asset:        common.HexToAddress("0x00000000000000000000000000000000000000a5"),
		Amount:       amount,
		FractionInfo: "1,3,5",
		Signer:       common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		Timestamp:    1700000000,
	}

	data, err := MarshalReceipt(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fractionId":"0x0000000000000000000000000000000000000000000000000000000000000001"`)

	restored, err := UnmarshalReceipt(data)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestSerialization_InvalidInput(t *testing.T) {
	_, err := MarshalReceipt(nil)
	assert.ErrorContains(t, err, "nil WhitelistReceipt")

	_, err = UnmarshalReceipt(nil)
	assert.ErrorContains(t, err, "empty data")

	_, err = UnmarshalReceipt([]byte("{not json"))
	assert.Error(t, err)

	_, err = MarshalGateState(nil)
	assert.ErrorContains(t, err, "nil GateState")

	_, err = UnmarshalGateState([]byte{})
	assert.ErrorContains(t, err, "empty data")
}

func TestSortReceipts(t *testing.T) {
	receipts := []*types.WhitelistReceipt{
		{FractionID: types.FractionIDFromUint64(300)},
		{FractionID: types.FractionIDFromUint64(2)},
		{FractionID: types.FractionIDFromUint64(17)},
	}
	SortReceipts(receipts)

	assert.Equal(t, types.FractionIDFromUint64(2), receipts[0].FractionID)
	assert.Equal(t, types.FractionIDFromUint64(17), receipts[1].FractionID)
	assert.Equal(t, types.FractionIDFromUint64(300), receipts[2].FractionID)
}

func TestCheckGateState(t *testing.T) {
	stored := &types.GateState{
		GateAddress: common.HexToAddress("0x0000000000000000000000000000000000006a7e"),
		Whitelister: common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		ChainID:     31337,
	}

	assert.NoError(t, CheckGateState(nil, stored))
	assert.NoError(t, CheckGateState(stored, stored))

	otherGate := *stored
	otherGate.GateAddress = common.HexToAddress("0x01")
	assert.ErrorContains(t, CheckGateState(stored, &otherGate), "gate address")

	otherChain := *stored
	otherChain.ChainID = 137
	assert.ErrorContains(t, CheckGateState(stored, &otherChain), "chain id")

	otherSigner := *stored
	otherSigner.Whitelister = common.HexToAddress("0x02")
	assert.ErrorContains(t, CheckGateState(stored, &otherSigner), "whitelister")

	// Owner is not part of the binding
	otherOwner := *stored
	otherOwner.Owner = common.HexToAddress("0x03")
	assert.NoError(t, CheckGateState(stored, &otherOwner))
}
