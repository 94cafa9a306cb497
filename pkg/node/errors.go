package node

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/callSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/gate"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/merkle"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/token"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
)

var gateStatus = map[string]int{
	"malformed_signature":               http.StatusBadRequest,
	"invalid_asset":                     http.StatusBadRequest,
	"invalid_amount":                    http.StatusBadRequest,
	"unauthorized":                      http.StatusForbidden,
	"not_owner":                         http.StatusForbidden,
	"asset_not_accepted":                http.StatusUnprocessableEntity,
	"slot_already_used":                 http.StatusConflict,
	"insufficient_allowance_or_balance": http.StatusPaymentRequired,
	"reentrant_call":                    http.StatusConflict,
}

// classify maps err to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	code := gate.ErrorCode(err)
	if status, ok := gateStatus[code]; ok {
		return status, code
	}

	switch {
	case errors.Is(err, callSigner.ErrSenderMismatch):
		return http.StatusUnauthorized, "sender_mismatch"
	case errors.Is(err, callSigner.ErrStaleNonce):
		return http.StatusUnauthorized, "stale_nonce"
	case errors.Is(err, callSigner.ErrReplayedCall):
		return http.StatusUnauthorized, "replayed_call"
	case errors.Is(err, callSigner.ErrWrongAudience):
		return http.StatusUnauthorized, "wrong_audience"
	case errors.Is(err, callSigner.ErrInvalidCall):
		return http.StatusUnauthorized, "invalid_call"
	case errors.Is(err, token.ErrUnknownAsset):
		return http.StatusNotFound, "unknown_asset"
	case errors.Is(err, merkle.ErrReceiptNotFound):
		return http.StatusNotFound, "receipt_not_found"
	case errors.Is(err, token.ErrOverflow):
		return http.StatusBadRequest, "overflow"
	case errors.Is(err, token.ErrZeroAddress):
		return http.StatusBadRequest, "zero_address"
	case errors.Is(err, token.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, persistence.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.node.logger.Sugar().Errorw("Request failed",
			"path", r.URL.Path,
			"request_id", gate.RequestIDFromContext(r.Context()),
			"error", err,
		)
	}
	writeErrorCode(w, r, status, code, err.Error())
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	writeJSON(w, status, types.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: gate.RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
