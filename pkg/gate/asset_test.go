package gate

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssetID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    common.Address
		wantErr bool
	}{
		{name: "lowercase", input: "0x5fbdb2315678afecb367f032d93f642f64180aa3", want: mockTokenAddress},
		{name: "checksummed", input: "0x5FbDB2315678afecb367f032d93F642f64180aa3", want: mockTokenAddress},
		{name: "uppercase body", input: "0x5FBDB2315678AFECB367F032D93F642F64180AA3", want: mockTokenAddress},
		{name: "doubled prefix", input: "0x0x5fbdb2315678afecb367f032d93f642f64180aa3", wantErr: true},
		{name: "doubled prefix truncated to length", input: "0x0x5fbdb2315678afecb367f032d93f642f64180a", wantErr: true},
		{name: "missing prefix", input: "5fbdb2315678afecb367f032d93f642f64180aa3", wantErr: true},
		{name: "too short", input: "0x5fbdb2315678afecb367f032d93f642f64180a", wantErr: true},
		{name: "too long", input: "0x5fbdb2315678afecb367f032d93f642f64180aa300", wantErr: true},
		{name: "non-hex", input: "0x5fbdb2315678afecb367f032d93f642f64180azz", wantErr: true},
		{name: "bad checksum", input: "0x5FbDB2315678afecb367f032d93F642f64180aA3", wantErr: true},
		{name: "zero address", input: "0x0000000000000000000000000000000000000000", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssetID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAsset))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("100000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000000", v.String())

	v, err = ParseAmount("0x64")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), v)

	for _, bad := range []string{"", "-1", "abc", "1.5", "0x10000000000000000000000000000000000000000000000000000000000000000"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", bad)
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "ok", ErrorCode(nil))
	assert.Equal(t, "unauthorized", ErrorCode(ErrUnauthorized))
	assert.Equal(t, "slot_already_used", ErrorCode(errors.Join(errors.New("x"), ErrSlotAlreadyUsed)))
	assert.Equal(t, "malformed_signature", ErrorCode(ErrMalformedSignature))
	assert.Equal(t, "insufficient_allowance_or_balance", ErrorCode(ErrInsufficientAllowanceOrBalance))
	assert.Equal(t, "internal", ErrorCode(errors.New("boom")))
}
