package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLtFrontier_Basic(t *testing.T) {
	assert.True(t, LtFrontier(1, 2))
	assert.False(t, LtFrontier(2, 1))
	assert.False(t, LtFrontier(5, 5))
}

func TestLtFrontier_WrapAround(t *testing.T) {
	// a is one behind b after wrapping past the top of the range.
	a := ^uint64(0) // max uint64
	b := uint64(0)
	assert.True(t, LtFrontier(a, b))
	assert.False(t, LtFrontier(b, a))
}

func TestLtFrontier_Irreflexive(t *testing.T) {
	for _, v := range []uint64{0, 1, 1 << 40, ^uint64(0)} {
		assert.False(t, LtFrontier(v, v))
	}
}

func TestGlobalState_FetchAddAdvancesEpoch(t *testing.T) {
	g := NewGlobalState()
	assert.Equal(t, uint64(0), LoadGlobalEpoch(g))

	first := fetchAddEpoch(g)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(1), LoadGlobalEpoch(g))

	second := fetchAddEpoch(g)
	assert.Equal(t, uint64(2), second)
}

func TestTryRaiseFrontier_OnlyAdvances(t *testing.T) {
	g := NewGlobalState()

	TryRaiseFrontier(g, 5)
	assert.Equal(t, uint64(5), loadGlobalFrontier(g))

	// A lower observed value must never move the frontier backwards.
	TryRaiseFrontier(g, 2)
	assert.Equal(t, uint64(5), loadGlobalFrontier(g))

	TryRaiseFrontier(g, 10)
	assert.Equal(t, uint64(10), loadGlobalFrontier(g))
}
