package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// VerifyRequest asks the node which identity signed a fraction.
type VerifyRequest struct {
	WalletAddress common.Address `json:"walletAddress"`
	Price         string         `json:"price"`
	FractionInfo  string         `json:"fractionInfo"`
	Signature     hexutil.Bytes  `json:"signature"`
}

type VerifyResponse struct {
	Signer      common.Address `json:"signer"`
	Whitelister common.Address `json:"whitelister"`
	Valid       bool           `json:"valid"`
}

type WhitelisterResponse struct {
	Whitelister common.Address `json:"whitelister"`
	Owner       common.Address `json:"owner"`
	NFT         common.Address `json:"nft"`
	Gate        common.Address `json:"gate"`
	ChainID     uint64         `json:"chainId"`
}

// CallHeader addresses a signed call to one gate on one chain. Every signed call
// payload embeds it.
type CallHeader struct {
	Gate    common.Address `json:"gate"`
	ChainID uint64         `json:"chainId"`
	Nonce   string         `json:"nonce"`
}

func (h *CallHeader) SetCallHeader(header CallHeader) {
	*h = header
}

// DoWhitelistCall is the payload of a signed /whitelist call. The caller is the
// signer of the enclosing envelope.
type DoWhitelistCall struct {
	CallHeader
	Asset        string        `json:"asset"`
	Amount       string        `json:"amount"`
	FractionID   FractionID    `json:"fractionId"`
	FractionInfo string        `json:"fractionInfo"`
	Signature    hexutil.Bytes `json:"signature"`
}

// UpdateTokenCall is the payload of a signed /admin/token call.
type UpdateTokenCall struct {
	CallHeader
	Asset    string `json:"asset"`
	Accepted bool   `json:"accepted"`
}

// MintCall is the payload of a signed /token/mint call.
type MintCall struct {
	CallHeader
	Asset  string         `json:"asset"`
	To     common.Address `json:"to"`
	Amount string         `json:"amount"`
}

// ApproveCall is the payload of a signed /token/approve call.
type ApproveCall struct {
	CallHeader
	Asset   string         `json:"asset"`
	Spender common.Address `json:"spender"`
	Amount  string         `json:"amount"`
}

type BalanceResponse struct {
	Asset   common.Address `json:"asset"`
	Account common.Address `json:"account"`
	Balance string         `json:"balance"`
}

type TokensResponse struct {
	Accepted []common.Address `json:"accepted"`
}

type SlotResponse struct {
	FractionID FractionID `json:"fractionId"`
	Consumed   bool       `json:"consumed"`
}

type ReceiptRootResponse struct {
	Root  common.Hash `json:"root"`
	Count int         `json:"count"`
}

type ReceiptProofResponse struct {
	Receipt *WhitelistReceipt `json:"receipt"`
	Root    common.Hash       `json:"root"`
	Leaf    common.Hash       `json:"leaf"`
	Index   uint64            `json:"index"`
	Proof   []common.Hash     `json:"proof"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
}
