package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FractionIDLength is the size of a whitelist slot identifier in bytes
const FractionIDLength = 32

// FractionID identifies a single-use whitelist slot (a bytes32 on chain).
type FractionID [FractionIDLength]byte

// FractionIDFromUint64 left-pads n to 32 bytes, matching hexZeroPad(hexlify(n), 32).
func FractionIDFromUint64(n uint64) FractionID {
	var id FractionID
	new(big.Int).SetUint64(n).FillBytes(id[:])
	return id
}

// ParseFractionID decodes a 0x-prefixed hex string of at most 32 bytes, left-padding
// shorter values.
func ParseFractionID(s string) (FractionID, error) {
	var id FractionID
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return id, fmt.Errorf("fraction id must be 0x-prefixed: %q", s)
	}
	raw := s[2:]
	if raw == "" {
		return id, fmt.Errorf("fraction id has no digits: %q", s)
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return id, fmt.Errorf("invalid fraction id %q: %w", s, err)
	}
	if len(b) > FractionIDLength {
		return id, fmt.Errorf("fraction id %q exceeds %d bytes", s, FractionIDLength)
	}
	copy(id[FractionIDLength-len(b):], b)
	return id, nil
}

func (f FractionID) Hex() string {
	return hexutil.Encode(f[:])
}

func (f FractionID) String() string {
	return f.Hex()
}

func (f FractionID) MarshalText() ([]byte, error) {
	return []byte(f.Hex()), nil
}

func (f *FractionID) UnmarshalText(text []byte) error {
	id, err := ParseFractionID(string(text))
	if err != nil {
		return err
	}
	*f = id
	return nil
}

// Fraction is the EIP-712 message signed by the whitelister:
// Fraction(address walletAddress,string fractionInfo,uint256 price)
type Fraction struct {
	WalletAddress common.Address `json:"walletAddress"`
	FractionInfo  string         `json:"fractionInfo"`
	Price         *big.Int       `json:"price"`
}

// WhitelistReceipt records one consumed slot and the custody transfer that paid for it.
type WhitelistReceipt struct {
	ID           string         `json:"id"`
	FractionID   FractionID     `json:"fractionId"`
	Wallet       common.Address `json:"wallet"`
	Asset        common.Address `json:"asset"`
	Amount       *big.Int       `json:"amount"`
	FractionInfo string         `json:"fractionInfo"`
	Signer       common.Address `json:"signer"`
	Timestamp    int64          `json:"timestamp"`
}

// Copy returns a deep copy of the receipt.
func (r *WhitelistReceipt) Copy() *WhitelistReceipt {
	if r == nil {
		return nil
	}
	c := *r
	if r.Amount != nil {
		c.Amount = new(big.Int).Set(r.Amount)
	}
	return &c
}

// GateState binds a persistence store to the gate it was created for.
type GateState struct {
	GateAddress common.Address `json:"gateAddress"`
	Whitelister common.Address `json:"whitelister"`
	Owner       common.Address `json:"owner"`
	ChainID     uint64         `json:"chainId"`
	CreatedAt   int64          `json:"createdAt"`
}

type EventType string

const (
	EventType_WhitelistExecuted EventType = "WhitelistExecuted"
	EventType_TokenUpdated      EventType = "TokenUpdated"
)

// GateEvent is the outcome notification emitted after a successful state change.
type GateEvent struct {
	Type      EventType       `json:"type"`
	Gate      common.Address  `json:"gate"`
	ChainID   uint64          `json:"chainId"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// TokenUpdate is the payload of a TokenUpdated event.
type TokenUpdate struct {
	Asset    common.Address `json:"asset"`
	Accepted bool           `json:"accepted"`
	Caller   common.Address `json:"caller"`
}
