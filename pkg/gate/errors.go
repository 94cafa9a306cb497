package gate

import (
	"errors"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
)

var (
	ErrMalformedSignature             = eip712.ErrMalformedSignature
	ErrUnauthorized                   = errors.New("unauthorized: signer is not the whitelister")
	ErrAssetNotAccepted               = errors.New("asset not accepted")
	ErrSlotAlreadyUsed                = errors.New("whitelist slot already used")
	ErrInsufficientAllowanceOrBalance = errors.New("insufficient allowance or balance")
	ErrNotOwner                       = errors.New("caller is not the owner")
	ErrInvalidAsset                   = errors.New("invalid asset identifier")
	ErrInvalidAmount                  = errors.New("amount must be an unsigned 256-bit integer")
	ErrReentrantCall                  = errors.New("reentrant call")
)

// ErrorCode classifies err into a stable snake_case code for metrics and API responses.
// A nil error is "ok"; anything unrecognised is "internal".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant_call"
	case errors.Is(err, ErrMalformedSignature):
		return "malformed_signature"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAssetNotAccepted):
		return "asset_not_accepted"
	case errors.Is(err, ErrSlotAlreadyUsed):
		return "slot_already_used"
	case errors.Is(err, ErrInsufficientAllowanceOrBalance):
		return "insufficient_allowance_or_balance"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrInvalidAsset):
		return "invalid_asset"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "internal"
	}
}
