package gate

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAssetID parses an asset contract address. It rejects a missing or doubled
// 0x prefix, wrong lengths, the zero address, and mixed-case input whose EIP-55
// checksum does not match.
func ParseAssetID(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("%w: missing 0x prefix: %q", ErrInvalidAsset, s)
	}
	body := s[2:]
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		return common.Address{}, fmt.Errorf("%w: doubled 0x prefix: %q", ErrInvalidAsset, s)
	}
	if len(body) != 2*common.AddressLength || !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: expected %d hex characters: %q", ErrInvalidAsset, 2*common.AddressLength, s)
	}

	addr := common.HexToAddress(s)
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if addr.Hex()[2:] != body {
			return common.Address{}, fmt.Errorf("%w: bad EIP-55 checksum: %q", ErrInvalidAsset, s)
		}
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidAsset)
	}
	return addr, nil
}

// ParseAmount parses a decimal or 0x-prefixed hex uint256.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := validateAmount(v); err != nil {
		return nil, err
	}
	return v, nil
}

func validateAmount(v *big.Int) error {
	if v == nil || v.Sign() < 0 || v.BitLen() > 256 {
		return ErrInvalidAmount
	}
	return nil
}
