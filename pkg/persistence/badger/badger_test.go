package badger

import (
	"testing"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/logger"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence/conformance"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ persistence.IGatePersistence = (*BadgerPersistence)(nil)

func newTestBadger(t *testing.T, dir string) *BadgerPersistence {
	t.Helper()
	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	bp, err := NewBadgerPersistence(dir, testLogger)
	require.NoError(t, err)
	return bp
}

func TestBadgerPersistence_Conformance(t *testing.T) {
	conformance.RunSuite(t, func(t *testing.T) persistence.IGatePersistence {
		return newTestBadger(t, t.TempDir())
	})
}

func TestBadgerPersistence_PersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	asset := common.HexToAddress("0x00000000000000000000000000000000000000a5")
	slot := types.FractionIDFromUint64(1)

	bp := newTestBadger(t, dir)
	require.NoError(t, bp.SetTokenAccepted(asset, true))
	consumed, err := bp.ConsumeSlot(slot)
	require.NoError(t, err)
	require.True(t, consumed)
	require.NoError(t, bp.SaveReceipt(conformance.SampleReceipt(1)))
	require.NoError(t, bp.SaveGateState(&types.GateState{ChainID: 31337}))
	require.NoError(t, bp.Close())

	reopened := newTestBadger(t, dir)
	defer func() { _ = reopened.Close() }()

	ok, err := reopened.IsTokenAccepted(asset)
	require.NoError(t, err)
	assert.True(t, ok)

	consumed, err = reopened.ConsumeSlot(slot)
	require.NoError(t, err)
	assert.False(t, consumed, "a slot consumed before restart stays consumed")

	receipt, err := reopened.LoadReceipt(slot)
	require.NoError(t, err)
	assert.Equal(t, conformance.SampleReceipt(1), receipt)

	state, err := reopened.LoadGateState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint64(31337), state.ChainID)
}

func TestBadgerPersistence_ListAcceptedTokens_Empty(t *testing.T) {
	bp := newTestBadger(t, t.TempDir())
	defer func() { _ = bp.Close() }()

	tokens, err := bp.ListAcceptedTokens()
	require.NoError(t, err)
	assert.NotNil(t, tokens)
	assert.Empty(t, tokens)
}
