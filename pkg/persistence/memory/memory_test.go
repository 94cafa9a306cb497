package memory

import (
	"testing"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence/conformance"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ persistence.IGatePersistence = (*MemoryPersistence)(nil)

func TestMemoryPersistence_Conformance(t *testing.T) {
	conformance.RunSuite(t, func(t *testing.T) persistence.IGatePersistence {
		return NewMemoryPersistence()
	})
}

func TestMemoryPersistence_SaveReceiptCopiesInput(t *testing.T) {
	mp := NewMemoryPersistence()
	defer func() { _ = mp.Close() }()

	r := conformance.SampleReceipt(7)
	require.NoError(t, mp.SaveReceipt(r))

	r.Amount.SetInt64(1)
	r.FractionInfo = "mutated"

	loaded, err := mp.LoadReceipt(types.FractionIDFromUint64(7))
	require.NoError(t, err)
	assert.Equal(t, conformance.SampleReceipt(7), loaded)
}

func TestMemoryPersistence_GateStateCopied(t *testing.T) {
	mp := NewMemoryPersistence()
	defer func() { _ = mp.Close() }()

	state := &types.GateState{ChainID: 31337}
	require.NoError(t, mp.SaveGateState(state))
	state.ChainID = 1

	loaded, err := mp.LoadGateState()
	require.NoError(t, err)
	assert.Equal(t, uint64(31337), loaded.ChainID)
}
