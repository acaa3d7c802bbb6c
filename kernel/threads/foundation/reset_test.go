package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredBuffer_PushLenDrain(t *testing.T) {
	var buf DeferredBuffer
	assert.Equal(t, 0, buf.Len())

	buf.Push("a")
	buf.Push("b")
	require.Equal(t, 2, buf.Len())

	drained := buf.Drain()
	assert.Equal(t, []interface{}{"a", "b"}, drained)
	assert.Equal(t, 0, buf.Len())
}

func TestReset_ZeroesEpochFrontierAndMutators(t *testing.T) {
	g := NewGlobalState()
	fetchAddEpoch(g)
	fetchAddEpoch(g)
	TryRaiseFrontier(g, 2)

	m := &testMutator{id: "a", epoch: MutatorEpoch{value: 2}}
	list := &testThreadList{members: []*testMutator{m}}

	var buf DeferredBuffer
	Reset(g, list, &buf)

	assert.Equal(t, uint64(0), LoadGlobalEpoch(g))
	assert.Equal(t, uint64(0), loadGlobalFrontier(g))
	assert.Equal(t, uint64(0), m.Epoch().Load())
}

func TestReset_ClearsInSafepointFlagOnReturn(t *testing.T) {
	g := NewGlobalState()
	var buf DeferredBuffer
	Reset(g, &testThreadList{}, &buf)
	assert.False(t, inSafepoint.Load())
}

func TestReset_ClearsResetScheduledFlag(t *testing.T) {
	g := NewGlobalState()
	cfg := DefaultConfig()
	cfg.EpochResetThreshold = 0 // force scheduling on the very first sync

	maybeScheduleReset(g, cfg, InitiatorDeps{}, 1)
	assert.True(t, ResetScheduled(g))

	var buf DeferredBuffer
	Reset(g, &testThreadList{}, &buf)
	assert.False(t, ResetScheduled(g))
}

func TestMaybeScheduleReset_OnlyScheduledOnce(t *testing.T) {
	g := NewGlobalState()
	cfg := DefaultConfig()
	cfg.EpochResetThreshold = 0

	maybeScheduleReset(g, cfg, InitiatorDeps{}, 1)
	require.True(t, ResetScheduled(g))

	// A second call before Reset clears the flag must not panic or
	// double-schedule; the CAS guard silently no-ops.
	maybeScheduleReset(g, cfg, InitiatorDeps{}, 2)
	assert.True(t, ResetScheduled(g))
}
