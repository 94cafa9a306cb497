package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
)

// MarshalReceipt serializes a WhitelistReceipt to JSON bytes.
func MarshalReceipt(r *types.WhitelistReceipt) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot marshal nil WhitelistReceipt")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal WhitelistReceipt to JSON: %w", err)
	}
	return data, nil
}

// UnmarshalReceipt deserializes a WhitelistReceipt from JSON bytes.
func UnmarshalReceipt(data []byte) (*types.WhitelistReceipt, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var r types.WhitelistReceipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to WhitelistReceipt: %w", err)
	}
	return &r, nil
}

// MarshalGateState serializes GateState to JSON bytes.
func MarshalGateState(gs *types.GateState) ([]byte, error) {
	if gs == nil {
		return nil, fmt.Errorf("cannot marshal nil GateState")
	}
	return json.Marshal(gs)
}

// UnmarshalGateState deserializes GateState from JSON bytes.
func UnmarshalGateState(data []byte) (*types.GateState, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var gs types.GateState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to GateState: %w", err)
	}
	return &gs, nil
}
