package gate

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/events"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/merkle"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/metrics"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/token"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config describes one deployed gate.
type Config struct {
	// Whitelister is the only identity whose fraction signatures are honoured.
	Whitelister common.Address
	// Owner administers the token registry. Defaults to Whitelister.
	Owner common.Address
	// NFT is the collection the gate was constructed with. Stored, never called.
	NFT common.Address
	// Address is the gate's own address: the verifyingContract of its signing
	// domain and the custody account for collected payments.
	Address common.Address
	ChainID uint64
}

func (c *Config) validate() error {
	if c.Whitelister == (common.Address{}) {
		return fmt.Errorf("whitelister address is required")
	}
	if c.Address == (common.Address{}) {
		return fmt.Errorf("gate address is required")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("chain id is required")
	}
	return nil
}

// Gate verifies whitelister-signed fractions and collects payment for each
// whitelist slot exactly once.
//
// Precondition checks and slot consumption are serialized by mu. The external
// asset transfer runs after the slot is consumed and outside mu. The context
// handed to the asset carries a guard so a transfer that calls back into the
// gate fails with ErrReentrantCall.
type Gate struct {
	mu sync.Mutex

	cfg    Config
	domain eip712.Domain

	store     persistence.IGatePersistence
	assets    token.IAssetResolver
	publisher events.IPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Gate)

func WithPublisher(p events.IPublisher) Option {
	return func(g *Gate) { g.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate binds a gate to its store. A store previously used by a different gate,
// chain or whitelister is refused.
func NewGate(
	cfg *Config,
	store persistence.IGatePersistence,
	assets token.IAssetResolver,
	logger *zap.Logger,
	opts ...Option,
) (*Gate, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gate config is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil || assets == nil {
		return nil, fmt.Errorf("store and asset resolver are required")
	}

	g := &Gate{
		cfg:    *cfg,
		domain: eip712.NewDomain(cfg.ChainID, cfg.Address),
		store:  store,
		assets: assets,
		logger: logger,
		now:    time.Now,
	}
	if g.cfg.Owner == (common.Address{}) {
		g.cfg.Owner = g.cfg.Whitelister
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.publisher == nil {
		g.publisher = events.NewLogPublisher(logger)
	}

	// custody balances are held at the gate address, so no asset may live there
	if _, ok := assets.Resolve(cfg.Address); ok {
		return nil, fmt.Errorf("%w: an asset is deployed at gate address %s", ErrInvalidAsset, cfg.Address.Hex())
	}
	if reserver, ok := assets.(token.IAddressReserver); ok {
		if err := reserver.Reserve(cfg.Address, "whitelist gate"); err != nil {
			return nil, err
		}
		if cfg.NFT != (common.Address{}) {
			if err := reserver.Reserve(cfg.NFT, "nft"); err != nil {
				return nil, err
			}
		}
	}

	state := &types.GateState{
		GateAddress: g.cfg.Address,
		Whitelister: g.cfg.Whitelister,
		Owner:       g.cfg.Owner,
		ChainID:     g.cfg.ChainID,
		CreatedAt:   g.now().Unix(),
	}
	stored, err := store.LoadGateState()
	if err != nil {
		return nil, fmt.Errorf("failed to load gate state: %w", err)
	}
	if err := persistence.CheckGateState(stored, state); err != nil {
		return nil, err
	}
	if stored == nil {
		if err := store.SaveGateState(state); err != nil {
			return nil, fmt.Errorf("failed to save gate state: %w", err)
		}
	}

	logger.Sugar().Infow("Whitelist gate ready",
		"gate", g.cfg.Address.Hex(),
		"chainId", g.cfg.ChainID,
		"whitelister", g.cfg.Whitelister.Hex(),
		"owner", g.cfg.Owner.Hex(),
	)
	return g, nil
}

func (g *Gate) Whitelister() common.Address { return g.cfg.Whitelister }
func (g *Gate) Owner() common.Address       { return g.cfg.Owner }
func (g *Gate) NFT() common.Address         { return g.cfg.NFT }
func (g *Gate) Address() common.Address     { return g.cfg.Address }
func (g *Gate) ChainID() uint64             { return g.cfg.ChainID }
func (g *Gate) Domain() eip712.Domain       { return g.domain }

// Verify returns the identity that signed {walletAddress, fractionInfo, price}
// under this gate's domain. It does not compare against the whitelister.
func (g *Gate) Verify(walletAddress common.Address, price *big.Int, fractionInfo string, signature []byte) (common.Address, error) {
	signer, err := g.recover(walletAddress, price, fractionInfo, signature)
	if err != nil {
		g.metrics.ObserveVerify(ErrorCode(err))
		return common.Address{}, err
	}
	if signer == g.cfg.Whitelister {
		g.metrics.ObserveVerify("ok")
	} else {
		g.metrics.ObserveVerify("foreign_signer")
	}
	return signer, nil
}

func (g *Gate) recover(walletAddress common.Address, price *big.Int, fractionInfo string, signature []byte) (common.Address, error) {
	if err := validateAmount(price); err != nil {
		return common.Address{}, err
	}
	fraction := &types.Fraction{
		WalletAddress: walletAddress,
		FractionInfo:  fractionInfo,
		Price:         price,
	}
	return eip712.RecoverFractionSigner(g.domain, fraction, signature)
}

// DoWhitelist claims whitelist slot fractionID for caller, pulling amount of asset
// from caller into the gate. The signature must be the whitelister's over
// {caller, fractionInfo, amount}.
func (g *Gate) DoWhitelist(
	ctx context.Context,
	caller common.Address,
	asset common.Address,
	amount *big.Int,
	fractionID types.FractionID,
	fractionInfo string,
	signature []byte,
) (*types.WhitelistReceipt, error) {
	start := g.now()
	receipt, err := g.doWhitelist(ctx, caller, asset, amount, fractionID, fractionInfo, signature)
	g.metrics.ObserveWhitelist(ErrorCode(err), g.now().Sub(start))
	if err != nil {
		g.logger.Sugar().Infow("Whitelist call rejected",
			"caller", caller.Hex(),
			"asset", asset.Hex(),
			"fractionId", fractionID.Hex(),
			"reason", ErrorCode(err),
			"error", err,
		)
		return nil, err
	}
	return receipt, nil
}

func (g *Gate) doWhitelist(
	ctx context.Context,
	caller common.Address,
	assetID common.Address,
	amount *big.Int,
	fractionID types.FractionID,
	fractionInfo string,
	signature []byte,
) (*types.WhitelistReceipt, error) {
	if g.entered(ctx) {
		return nil, ErrReentrantCall
	}

	asset, signer, err := g.claimSlot(caller, assetID, amount, fractionID, fractionInfo, signature)
	if err != nil {
		return nil, err
	}

	// The gate lock is not held during the transfer. The slot is already
	// consumed, so an asset calling back into the gate cannot claim it again,
	// whichever context it uses.
	guarded := g.enter(ctx)
	if err := asset.TransferFrom(guarded, g.cfg.Address, caller, g.cfg.Address, amount); err != nil {
		g.releaseSlot(fractionID)
		return nil, fmt.Errorf("%w: %w", ErrInsufficientAllowanceOrBalance, err)
	}

	receiptID := RequestIDFromContext(ctx)
	if receiptID == "" {
		receiptID = uuid.NewString()
	}
	receipt := &types.WhitelistReceipt{
		ID:           receiptID,
		FractionID:   fractionID,
		Wallet:       caller,
		Asset:        assetID,
		Amount:       new(big.Int).Set(amount),
		FractionInfo: fractionInfo,
		Signer:       signer,
		Timestamp:    g.now().Unix(),
	}
	if err := g.store.SaveReceipt(receipt); err != nil {
		g.refund(guarded, asset, caller, amount)
		g.releaseSlot(fractionID)
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}

	g.logger.Sugar().Infow("Whitelist slot claimed",
		"caller", caller.Hex(),
		"asset", assetID.Hex(),
		"amount", amount.String(),
		"fractionId", fractionID.Hex(),
		"fractionInfo", fractionInfo,
		"receiptId", receipt.ID,
	)
	g.publish(ctx, types.EventType_WhitelistExecuted, receipt)

	return receipt.Copy(), nil
}

// claimSlot runs every precondition of a whitelist call and consumes the slot,
// serialized with all other mutating calls on this gate.
func (g *Gate) claimSlot(
	caller common.Address,
	assetID common.Address,
	amount *big.Int,
	fractionID types.FractionID,
	fractionInfo string,
	signature []byte,
) (token.IFungibleAsset, common.Address, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if assetID == (common.Address{}) {
		return nil, common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidAsset)
	}
	accepted, err := g.store.IsTokenAccepted(assetID)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to read token registry: %w", err)
	}
	if !accepted {
		return nil, common.Address{}, fmt.Errorf("%w: %s", ErrAssetNotAccepted, assetID.Hex())
	}
	asset, ok := g.assets.Resolve(assetID)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("%w: no asset deployed at %s", ErrAssetNotAccepted, assetID.Hex())
	}

	used, err := g.store.IsSlotConsumed(fractionID)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to read slot: %w", err)
	}
	if used {
		return nil, common.Address{}, fmt.Errorf("%w: %s", ErrSlotAlreadyUsed, fractionID.Hex())
	}

	// walletAddress is always the real caller, so a signature issued to someone
	// else cannot be replayed by a different account.
	signer, err := g.recover(caller, amount, fractionInfo, signature)
	if err != nil {
		return nil, common.Address{}, err
	}
	if signer != g.cfg.Whitelister {
		return nil, common.Address{}, fmt.Errorf("%w: recovered %s", ErrUnauthorized, signer.Hex())
	}

	consumed, err := g.store.ConsumeSlot(fractionID)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to consume slot: %w", err)
	}
	if !consumed {
		return nil, common.Address{}, fmt.Errorf("%w: %s", ErrSlotAlreadyUsed, fractionID.Hex())
	}
	return asset, signer, nil
}

func (g *Gate) releaseSlot(id types.FractionID) {
	if err := g.store.ReleaseSlot(id); err != nil {
		g.logger.Sugar().Errorw("Failed to release slot after aborted whitelist call; slot stays consumed",
			"fractionId", id.Hex(), "error", err)
	}
}

func (g *Gate) refund(ctx context.Context, asset token.IFungibleAsset, to common.Address, amount *big.Int) {
	if err := asset.Transfer(ctx, g.cfg.Address, to, amount); err != nil {
		g.logger.Sugar().Errorw("Failed to refund aborted whitelist payment",
			"asset", asset.Address().Hex(), "to", to.Hex(), "amount", amount.String(), "error", err)
	}
}

// UpdateToken sets whether asset is accepted for payment. Owner only.
func (g *Gate) UpdateToken(ctx context.Context, caller common.Address, asset common.Address, accepted bool) error {
	if g.entered(ctx) {
		return ErrReentrantCall
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if caller != g.cfg.Owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	if asset == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidAsset)
	}

	if err := g.store.SetTokenAccepted(asset, accepted); err != nil {
		return fmt.Errorf("failed to update token registry: %w", err)
	}
	g.metrics.ObserveTokenUpdate(accepted)

	g.logger.Sugar().Infow("Token registry updated", "asset", asset.Hex(), "accepted", accepted)
	g.publish(ctx, types.EventType_TokenUpdated, types.TokenUpdate{
		Asset:    asset,
		Accepted: accepted,
		Caller:   caller,
	})
	return nil
}

func (g *Gate) publish(ctx context.Context, eventType types.EventType, payload any) {
	event, err := events.NewEvent(eventType, g.cfg.Address, g.cfg.ChainID, payload)
	if err != nil {
		g.logger.Sugar().Errorw("Failed to build event", "type", eventType, "error", err)
		return
	}
	if err := g.publisher.Publish(ctx, event); err != nil {
		g.logger.Sugar().Warnw("Failed to publish event", "type", eventType, "error", err)
	}
}

func (g *Gate) IsTokenAccepted(asset common.Address) (bool, error) {
	return g.store.IsTokenAccepted(asset)
}

func (g *Gate) AcceptedTokens() ([]common.Address, error) {
	return g.store.ListAcceptedTokens()
}

func (g *Gate) IsSlotConsumed(id types.FractionID) (bool, error) {
	return g.store.IsSlotConsumed(id)
}

// Receipt returns nil when the slot has not been claimed.
func (g *Gate) Receipt(id types.FractionID) (*types.WhitelistReceipt, error) {
	return g.store.LoadReceipt(id)
}

func (g *Gate) Receipts() ([]*types.WhitelistReceipt, error) {
	return g.store.ListReceipts()
}

func (g *Gate) receiptTree() (*merkle.ReceiptTree, error) {
	receipts, err := g.store.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return merkle.BuildReceiptTree(receipts)
}

// ReceiptRoot commits to every receipt recorded so far.
func (g *Gate) ReceiptRoot() (common.Hash, int, error) {
	tree, err := g.receiptTree()
	if err != nil {
		return common.Hash{}, 0, err
	}
	return tree.Root(), tree.Len(), nil
}

// ReceiptProof proves the receipt of slot id against the current receipt root.
func (g *Gate) ReceiptProof(id types.FractionID) (*merkle.ReceiptProof, common.Hash, error) {
	tree, err := g.receiptTree()
	if err != nil {
		return nil, common.Hash{}, err
	}
	proof, err := tree.GenerateProof(id)
	if err != nil {
		return nil, common.Hash{}, err
	}
	return proof, tree.Root(), nil
}
