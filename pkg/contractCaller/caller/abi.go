package caller

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ArtfiWhitelistABI covers the gate functions this package calls.
const ArtfiWhitelistABI = `[
	{"type":"function","name":"whitelister","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"verify1","stateMutability":"view","inputs":[
		{"name":"walletAddress","type":"address"},
		{"name":"price","type":"uint256"},
		{"name":"fractionInfo","type":"string"},
		{"name":"signature","type":"bytes"}
	],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"doWhitelist","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"fractionId","type":"bytes32"},
		{"name":"fractionInfo","type":"string"},
		{"name":"signature","type":"bytes"}
	],"outputs":[]},
	{"type":"function","name":"updateToken","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},
		{"name":"accepted","type":"bool"}
	],"outputs":[]}
]`

// MockTokenABI is the ERC-20 surface plus the open mint of the test token.
const MockTokenABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

var (
	whitelistABI = mustParseABI(ArtfiWhitelistABI)
	tokenABI     = mustParseABI(MockTokenABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
