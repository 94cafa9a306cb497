package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestFractionIDFromUint64(t *testing.T) {
	id := FractionIDFromUint64(1)
	require.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", id.Hex())

	id = FractionIDFromUint64(0xabcdef)
	require.Equal(t, byte(0xef), id[31])
	require.Equal(t, byte(0xcd), id[30])
	require.Equal(t, byte(0xab), id[29])
}

func TestParseFractionID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FractionID
		wantErr bool
	}{
		{"full width", "0x0000000000000000000000000000000000000000000000000000000000000001", FractionIDFromUint64(1), false},
		{"short", "0x1", FractionIDFromUint64(1), false},
		{"short even", "0x0102", FractionIDFromUint64(0x0102), false},
		{"zero", "0x0", FractionID{}, false},
		{"empty", "0x", FractionID{}, true},
		{"missing prefix", "01", FractionID{}, true},
		{"not hex", "0xzz", FractionID{}, true},
		{"too long", "0x" + "00" + "0000000000000000000000000000000000000000000000000000000000000001", FractionID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFractionID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFractionID_JSON(t *testing.T) {
	call := DoWhitelistCall{
		CallHeader: CallHeader{
			Gate:    common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"),
			ChainID: 31337,
			Nonce:   "1700000000-00112233445566778899aabbccddeeff",
		},
		Asset:        "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Amount:       "100",
		FractionID:   FractionIDFromUint64(7),
		FractionInfo: "1,3,5",
	}

	data, err := json.Marshal(call)
	require.NoError(t, err)
	require.Contains(t, string(data), `"fractionId":"0x0000000000000000000000000000000000000000000000000000000000000007"`)
	require.Contains(t, string(data), `"chainId":31337`, "the call header is flattened into the payload")

	var decoded DoWhitelistCall
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, call.FractionID, decoded.FractionID)
	require.Equal(t, call.CallHeader, decoded.CallHeader)
	require.Equal(t, call.Asset, decoded.Asset)
}

func TestWhitelistReceipt_Copy(t *testing.T) {
	r := &WhitelistReceipt{
		ID:         "r-1",
		FractionID: FractionIDFromUint64(1),
		Amount:     big.NewInt(100),
	}
	c := r.Copy()
	c.Amount.SetInt64(5)
	require.Equal(t, int64(100), r.Amount.Int64())

	var nilReceipt *WhitelistReceipt
	require.Nil(t, nilReceipt.Copy())
}
