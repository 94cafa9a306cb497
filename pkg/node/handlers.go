package node

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/callSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/gate"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/token"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

const maxBodyBytes = 1 << 20

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "invalid_request", fmt.Sprintf("failed to parse request: %v", err))
		return false
	}
	return true
}

// openCall decodes a signed call envelope and authenticates it, returning the sender.
func (s *Server) openCall(w http.ResponseWriter, r *http.Request, out any) (common.Address, bool) {
	var call callSigner.SignedCall
	if !decodeBody(w, r, &call) {
		return common.Address{}, false
	}
	sender, err := s.node.verifier.Open(&call, out)
	if err != nil {
		s.writeError(w, r, err)
		return common.Address{}, false
	}
	return sender, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if err := s.node.store.HealthCheck(); err != nil {
		writeErrorCode(w, r, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWhitelister(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	g := s.node.gate
	writeJSON(w, http.StatusOK, types.WhitelisterResponse{
		Whitelister: g.Whitelister(),
		Owner:       g.Owner(),
		NFT:         g.NFT(),
		Gate:        g.Address(),
		ChainID:     g.ChainID(),
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req types.VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	price, err := gate.ParseAmount(req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	signer, err := s.node.gate.Verify(req.WalletAddress, price, req.FractionInfo, req.Signature)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.VerifyResponse{
		Signer:      signer,
		Whitelister: s.node.gate.Whitelister(),
		Valid:       signer == s.node.gate.Whitelister(),
	})
}

func (s *Server) handleDoWhitelist(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var call types.DoWhitelistCall
	sender, ok := s.openCall(w, r, &call)
	if !ok {
		return
	}
	asset, err := gate.ParseAssetID(call.Asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := gate.ParseAmount(call.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	receipt, err := s.node.gate.DoWhitelist(r.Context(), sender, asset, amount, call.FractionID, call.FractionInfo, call.Signature)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleUpdateToken(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var call types.UpdateTokenCall
	sender, ok := s.openCall(w, r, &call)
	if !ok {
		return
	}
	asset, err := gate.ParseAssetID(call.Asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.node.gate.UpdateToken(r.Context(), sender, asset, call.Accepted); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTokens(w, r)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	s.writeTokens(w, r)
}

func (s *Server) writeTokens(w http.ResponseWriter, r *http.Request) {
	accepted, err := s.node.gate.AcceptedTokens()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if accepted == nil {
		accepted = []common.Address{}
	}
	writeJSON(w, http.StatusOK, types.TokensResponse{Accepted: accepted})
}

func (s *Server) handleSlot(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id, err := types.ParseFractionID(strings.TrimPrefix(r.URL.Path, "/slots/"))
	if err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "invalid_fraction_id", err.Error())
		return
	}
	consumed, err := s.node.gate.IsSlotConsumed(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SlotResponse{FractionID: id, Consumed: consumed})
}

func (s *Server) handleReceiptRoot(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	root, count, err := s.node.gate.ReceiptRoot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ReceiptRootResponse{Root: root, Count: count})
}

func (s *Server) handleReceiptProof(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id, err := types.ParseFractionID(r.URL.Query().Get("fractionId"))
	if err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "invalid_fraction_id", err.Error())
		return
	}
	proof, root, err := s.node.gate.ReceiptProof(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ReceiptProofResponse{
		Receipt: proof.Receipt,
		Root:    root,
		Leaf:    proof.Leaf,
		Index:   proof.Index,
		Proof:   proof.Hashes,
	})
}

func (s *Server) lookupToken(asset common.Address) (*token.Token, error) {
	if s.node.book == nil {
		return nil, fmt.Errorf("%w: %s", token.ErrUnknownAsset, asset.Hex())
	}
	return s.node.book.Get(asset)
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var call types.MintCall
	sender, ok := s.openCall(w, r, &call)
	if !ok {
		return
	}
	asset, err := gate.ParseAssetID(call.Asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := gate.ParseAmount(call.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.lookupToken(asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := t.Mint(call.To, amount); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.node.logger.Sugar().Infow("Minted mock tokens",
		"asset", asset.Hex(),
		"to", call.To.Hex(),
		"amount", amount.String(),
		"caller", sender.Hex(),
	)
	writeBalance(w, t, call.To)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var call types.ApproveCall
	sender, ok := s.openCall(w, r, &call)
	if !ok {
		return
	}
	asset, err := gate.ParseAssetID(call.Asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := gate.ParseAmount(call.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.lookupToken(asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := t.Approve(sender, call.Spender, amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	asset, err := gate.ParseAssetID(q.Get("asset"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	account := q.Get("account")
	if !common.IsHexAddress(account) {
		writeErrorCode(w, r, http.StatusBadRequest, "invalid_account", fmt.Sprintf("invalid account %q", account))
		return
	}
	t, err := s.lookupToken(asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBalance(w, t, common.HexToAddress(account))
}

func writeBalance(w http.ResponseWriter, t *token.Token, account common.Address) {
	writeJSON(w, http.StatusOK, types.BalanceResponse{
		Asset:   t.Address(),
		Account: account,
		Balance: t.BalanceOf(account).String(),
	})
}
