package merkle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	merkletree "github.com/wealdtech/go-merkletree/v2"
	"github.com/wealdtech/go-merkletree/v2/keccak256"
)

// ErrReceiptNotFound is returned when a proof is requested for a slot with no receipt
var ErrReceiptNotFound = errors.New("receipt not found")

// encodedReceiptLength is fractionId(32) || wallet(20) || asset(20) || amount(32) || keccak(info)(32) || signer(20)
const encodedReceiptLength = 32 + 20 + 20 + 32 + 32 + 20

// ReceiptTree is a keccak256 merkle tree over whitelist receipts.
// Receipts are ordered by fraction id so every node holding the same receipts
// computes the same root.
type ReceiptTree struct {
	tree     *merkletree.MerkleTree
	receipts []*types.WhitelistReceipt
	data     [][]byte
	index    map[types.FractionID]int
}

// ReceiptProof shows that a receipt is included in a tree with a given root.
type ReceiptProof struct {
	Receipt *types.WhitelistReceipt
	Leaf    common.Hash
	Index   uint64
	Hashes  []common.Hash
}

// EncodeReceipt packs the fields of a receipt that are committed to by the tree.
// The receipt id and timestamp are node-local and excluded.
func EncodeReceipt(r *types.WhitelistReceipt) []byte {
	out := make([]byte, 0, encodedReceiptLength)
	out = append(out, r.FractionID[:]...)
	out = append(out, r.Wallet.Bytes()...)
	out = append(out, r.Asset.Bytes()...)

	amount := r.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	out = append(out, common.LeftPadBytes(amount.Bytes(), 32)...)
	out = append(out, crypto.Keccak256([]byte(r.FractionInfo))...)
	out = append(out, r.Signer.Bytes()...)
	return out
}

// HashReceipt returns the leaf hash of a receipt.
func HashReceipt(r *types.WhitelistReceipt) common.Hash {
	return crypto.Keccak256Hash(EncodeReceipt(r))
}

// BuildReceiptTree builds a tree over receipts. An empty receipt set yields a tree
// with a zero root that cannot produce proofs.
func BuildReceiptTree(receipts []*types.WhitelistReceipt) (*ReceiptTree, error) {
	sorted := make([]*types.WhitelistReceipt, len(receipts))
	copy(sorted, receipts)
	persistence.SortReceipts(sorted)

	rt := &ReceiptTree{
		receipts: sorted,
		data:     make([][]byte, len(sorted)),
		index:    make(map[types.FractionID]int, len(sorted)),
	}
	for i, r := range sorted {
		if _, dup := rt.index[r.FractionID]; dup {
			return nil, fmt.Errorf("duplicate receipt for fraction %s", r.FractionID.Hex())
		}
		rt.index[r.FractionID] = i
		rt.data[i] = EncodeReceipt(r)
	}

	if len(sorted) == 0 {
		return rt, nil
	}

	tree, err := merkletree.NewTree(
		merkletree.WithData(rt.data),
		merkletree.WithHashType(keccak256.New()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build receipt tree: %w", err)
	}
	rt.tree = tree
	return rt, nil
}

func (rt *ReceiptTree) Len() int {
	return len(rt.receipts)
}

func (rt *ReceiptTree) Root() common.Hash {
	if rt.tree == nil {
		return common.Hash{}
	}
	return common.BytesToHash(rt.tree.Root())
}

// GenerateProof returns an inclusion proof for the receipt of the given slot.
func (rt *ReceiptTree) GenerateProof(id types.FractionID) (*ReceiptProof, error) {
	i, ok := rt.index[id]
	if !ok || rt.tree == nil {
		return nil, fmt.Errorf("%w: fraction %s", ErrReceiptNotFound, id.Hex())
	}

	proof, err := rt.tree.GenerateProof(rt.data[i], 0)
	if err != nil {
		return nil, fmt.Errorf("failed to generate proof for fraction %s: %w", id.Hex(), err)
	}

	hashes := make([]common.Hash, len(proof.Hashes))
	for j, h := range proof.Hashes {
		hashes[j] = common.BytesToHash(h)
	}

	return &ReceiptProof{
		Receipt: rt.receipts[i].Copy(),
		Leaf:    HashReceipt(rt.receipts[i]),
		Index:   proof.Index,
		Hashes:  hashes,
	}, nil
}

// VerifyProof checks that proof.Receipt is included in a tree with the given root.
func VerifyProof(proof *ReceiptProof, root common.Hash) (bool, error) {
	if proof == nil || proof.Receipt == nil {
		return false, nil
	}

	hashes := make([][]byte, len(proof.Hashes))
	for i, h := range proof.Hashes {
		hashes[i] = h.Bytes()
	}

	return merkletree.VerifyProofUsing(
		EncodeReceipt(proof.Receipt),
		false,
		&merkletree.Proof{Hashes: hashes, Index: proof.Index},
		[][]byte{root.Bytes()},
		keccak256.New(),
	)
}
