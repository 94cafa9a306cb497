// Package conformance holds the behavioural test suite every IGatePersistence
// backend must pass.
package conformance

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) persistence.IGatePersistence

// RunSuite runs every conformance test against stores produced by newStore.
func RunSuite(t *testing.T, newStore Factory) {
	t.Run("TokenRegistry", func(t *testing.T) { testTokenRegistry(t, newStore(t)) })
	t.Run("SlotLifecycle", func(t *testing.T) { testSlotLifecycle(t, newStore(t)) })
	t.Run("ConcurrentConsume", func(t *testing.T) { testConcurrentConsume(t, newStore(t)) })
	t.Run("SeenCalls", func(t *testing.T) { testSeenCalls(t, newStore(t)) })
	t.Run("Receipts", func(t *testing.T) { testReceipts(t, newStore(t)) })
	t.Run("GateState", func(t *testing.T) { testGateState(t, newStore(t)) })
	t.Run("Close", func(t *testing.T) { testClose(t, newStore(t)) })
}

// SampleReceipt builds a receipt for slot n.
func SampleReceipt(n uint64) *types.WhitelistReceipt {
	return &types.WhitelistReceipt{
		ID:           "receipt-" + new(big.Int).SetUint64(n).String(),
		FractionID:   types.FractionIDFromUint64(n),
		Wallet:       common.HexToAddress("0x00000000000000000000000000000000000000b0"),
		Asset:        common.HexToAddress("0x00000000000000000000000000000000000000a5"),
		Amount:       new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
		FractionInfo: "1,3,5",
		Signer:       common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		Timestamp:    1700000000 + int64(n),
	}
}

func testTokenRegistry(t *testing.T, p persistence.IGatePersistence) {
	defer func() { _ = p.Close() }()

	a := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	b := common.HexToAddress("0x00000000000000000000000000000000000000a2")

	ok, err := p.IsTokenAccepted(a)
	require.NoError(t, err)
	assert.False(t, ok, "unregistered assets are not accepted")

	require.NoError(t, p.SetTokenAccepted(b, true))
	require.NoError(t, p.SetTokenAccepted(a, true))
	require.NoError(t, p.SetTokenAccepted(a, true))

	ok, err = p.IsTokenAccepted(a)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := p.ListAcceptedTokens()
	require.NoError(t, err)
	assert.Equal(t, []common.Address{a, b}, list)

	require.NoError(t, p.SetTokenAccepted(a, false))
	require.NoError(t, p.SetTokenAccepted(a, false))

	ok, err = p.IsTokenAccepted(a)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err = p.ListAcceptedTokens()
	require.NoError(t, err)
	assert.Equal(t, []common.Address{b}, list)
}

func testSlotLifecycle(t *testing.T, p persistence.IGatePersistence) {
	defer func() { _ = p.Close() }()

	id := types.FractionIDFromUint64(1)

	used, err := p.IsSlotConsumed(id)
	require.NoError(t, err)
	assert.False(t, used)

	consumed, err := p.ConsumeSlot(id)
	require.NoError(t, err)
	assert.True(t, consumed)

	consumed, err = p.ConsumeSlot(id)
	require.NoError(t, err)
	assert.False(t, consumed, "second consumption must be refused")

	used, err = p.IsSlotConsumed(id)
	require.NoError(t, err)
	assert.True(t, used)

	// Other slots are independent
	used, err = p.IsSlotConsumed(types.FractionIDFromUint64(2))
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, p.ReleaseSlot(id))
	require.NoError(t, p.ReleaseSlot(id))

	used, err = p.IsSlotConsumed(id)
	require.NoError(t, err)
	assert.False(t, used)

	consumed, err = p.ConsumeSlot(id)
	require.NoError(t, err)
	assert.True(t, consumed)
}

func testConcurrentConsume(t *testing.T, p persistence.IGatePersistence) {
	defer func() { _ = p.Close() }()

	id := types.FractionIDFromUint64(42)
	const workers = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := p.ConsumeSlot(id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if ok {
				wins++
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 1, wins, "exactly one consumer may win a slot")
}

func testSeenCalls(t *testing.T, p persistence.IGatePersistence) {
	defer func() { _ = p.Close() }()

	hash := common.HexToHash("0xabc1")

	first, err := p.MarkCallSeen(hash, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := p.MarkCallSeen(hash, time.Minute)
	require.NoError(t, err)
	assert.False(t, again, "a recorded call hash is refused until it expires")

	other, err := p.MarkCallSeen(common.HexToHash("0xabc2"), time.Minute)
	require.NoError(t, err)
	assert.True(t, other)

	// badger and redis TTLs have one second resolution
	short := common.HexToHash("0xabc3")
	ok, err := p.MarkCallSeen(short, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Eventually(t, func() bool {
		ok, err := p.MarkCallSeen(short, time.Second)
		return err == nil && ok
	}, 5*time.Second, 100*time.Millisecond, "expired call hashes can be recorded again")
}

func testReceipts(t *testing.T, p persistence.IGatePersistence) {
	defer func() { _ = p.Close() }()

	loaded, err := p.LoadReceipt(types.FractionIDFromUint64(9))
	require.NoError(t, err)
	assert.Nil(t, loaded)

	list, err := p.ListReceipts()
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Error(t, p.SaveReceipt(nil))

	for _, n := range []uint64{3, 1, 2} {
		require.NoError(t, p.SaveReceipt(SampleReceipt(n)))
	}

	loaded, err = p.LoadReceipt(types.FractionIDFromUint64(2))
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, SampleReceipt(2), loaded)

	// Mutating a loaded receipt must not affect the store
	loaded.Amount.SetInt64(0)
	again, err := p.LoadReceipt(types.FractionIDFromUint64(2))
	require.NoError(t, err)
	assert.Equal(t, SampleReceipt(2).Amount, again.Amount)

	list, err = p.ListReceipts()
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, r := range list {
		assert.Equal(t, types.FractionIDFromUint64(uint64(i+1)), r.FractionID)
	}
}

func testGateState(t *testing.T, p persistence.IGatePersistence) {
	defer func() { _ = p.Close() }()

	state, err := p.LoadGateState()
	require.NoError(t, err)
	assert.Nil(t, state)

	assert.Error(t, p.SaveGateState(nil))

	want := &types.GateState{
		GateAddress: common.HexToAddress("0x0000000000000000000000000000000000006a7e"),
		Whitelister: common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		Owner:       common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		ChainID:     31337,
		CreatedAt:   1700000000,
	}
	require.NoError(t, p.SaveGateState(want))

	state, err = p.LoadGateState()
	require.NoError(t, err)
	assert.Equal(t, want, state)
}

func testClose(t *testing.T, p persistence.IGatePersistence) {
	require.NoError(t, p.HealthCheck())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "close is idempotent")

	assert.ErrorIs(t, p.HealthCheck(), persistence.ErrClosed)
	assert.ErrorIs(t, p.SetTokenAccepted(common.HexToAddress("0x01"), true), persistence.ErrClosed)

	_, err := p.ConsumeSlot(types.FractionIDFromUint64(1))
	assert.ErrorIs(t, err, persistence.ErrClosed)

	_, err = p.MarkCallSeen(common.HexToHash("0x01"), time.Minute)
	assert.ErrorIs(t, err, persistence.ErrClosed)

	_, err = p.ListReceipts()
	assert.ErrorIs(t, err, persistence.ErrClosed)

	_, err = p.LoadGateState()
	assert.ErrorIs(t, err, persistence.ErrClosed)
}
