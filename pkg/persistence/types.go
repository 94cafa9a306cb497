package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("persistence layer is closed")

// SortReceipts orders receipts by fraction id, the order used for listing and the audit tree.
func SortReceipts(receipts []*types.WhitelistReceipt) {
	sort.Slice(receipts, func(i, j int) bool {
		return bytes.Compare(receipts[i].FractionID[:], receipts[j].FractionID[:]) < 0
	})
}

// SortAddresses orders addresses by their byte value.
func SortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}

// CheckGateState verifies that a store previously bound to a gate is being reopened
// by the same gate. A nil stored state always matches.
func CheckGateState(stored, expected *types.GateState) error {
	if stored == nil || expected == nil {
		return nil
	}
	if stored.GateAddress != expected.GateAddress {
		return fmt.Errorf("persisted gate address %s does not match configured %s",
			stored.GateAddress.Hex(), expected.GateAddress.Hex())
	}
	if stored.ChainID != expected.ChainID {
		return fmt.Errorf("persisted chain id %d does not match configured %d", stored.ChainID, expected.ChainID)
	}
	if stored.Whitelister != expected.Whitelister {
		return fmt.Errorf("persisted whitelister %s does not match configured %s",
			stored.Whitelister.Hex(), expected.Whitelister.Hex())
	}
	return nil
}
