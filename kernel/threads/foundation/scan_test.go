package foundation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMutator struct {
	id     string
	epoch  MutatorEpoch
	parked bool
}

func (m *testMutator) ThreadID() string      { return m.id }
func (m *testMutator) Epoch() *MutatorEpoch  { return &m.epoch }
func (m *testMutator) Parked() bool          { return m.parked }

type testThreadList struct {
	members []*testMutator
}

func (l *testThreadList) ForEachMutator(visit func(MutatorThread) bool) {
	for _, m := range l.members {
		if !visit(m) {
			return
		}
	}
}

type testSafepoints struct {
	armed      map[string]bool
	scopeGrant map[string]bool // whether DelegateProcessingScope should succeed
}

func newTestSafepoints() *testSafepoints {
	return &testSafepoints{armed: map[string]bool{}, scopeGrant: map[string]bool{}}
}

func (s *testSafepoints) ArmLocalPoll(target MutatorThread) {
	s.armed[target.ThreadID()] = true
}

func (s *testSafepoints) DelegateProcessingScope(target MutatorThread) (DelegateScope, bool) {
	if s.scopeGrant[target.ThreadID()] {
		return &fakeScope{}, true
	}
	return nil, false
}

func TestScan_ObserveComputesMinEpoch(t *testing.T) {
	g := NewGlobalState()
	list := &testThreadList{members: []*testMutator{
		{id: "a", epoch: MutatorEpoch{value: 3}},
		{id: "b", epoch: MutatorEpoch{value: 1}},
		{id: "c", epoch: MutatorEpoch{value: 5}},
	}}

	result := Scan(g, list, newTestSafepoints(), 5, Observe, nil)
	assert.Equal(t, uint64(1), result.MinEpoch)
	assert.Zero(t, result.ArmedCount)
	assert.Empty(t, result.Stragglers)
}

func TestScan_VacuousWhenNoMutators(t *testing.T) {
	g := NewGlobalState()
	result := Scan(g, &testThreadList{}, newTestSafepoints(), 7, Observe, nil)
	assert.Equal(t, uint64(7), result.MinEpoch)
}

func TestScan_ArmPollsArmsLaggingMutators(t *testing.T) {
	g := NewGlobalState()
	list := &testThreadList{members: []*testMutator{
		{id: "a", epoch: MutatorEpoch{value: 0}},
		{id: "b", epoch: MutatorEpoch{value: 5}},
	}}
	sp := newTestSafepoints()

	result := Scan(g, list, sp, 5, ArmPolls, nil)
	require.True(t, sp.armed["a"])
	assert.False(t, sp.armed["b"])
	assert.Equal(t, 1, result.ArmedCount)
}

func TestScan_ArmPollsSkipsSelf(t *testing.T) {
	g := NewGlobalState()
	self := &testMutator{id: "self", epoch: MutatorEpoch{value: 0}}
	list := &testThreadList{members: []*testMutator{self}}
	sp := newTestSafepoints()

	result := Scan(g, list, sp, 5, ArmPolls, self)
	assert.False(t, sp.armed["self"])
	assert.Zero(t, result.ArmedCount)
}

func TestScan_ArmPollsUpdatesInScopeWhenParked(t *testing.T) {
	g := NewGlobalState()
	// Raise global_epoch to 3.
	for i := 0; i < 3; i++ {
		fetchAddEpoch(g)
	}

	lagging := &testMutator{id: "a", epoch: MutatorEpoch{value: 0}, parked: true}
	list := &testThreadList{members: []*testMutator{lagging}}
	sp := newTestSafepoints()
	sp.scopeGrant["a"] = true

	result := Scan(g, list, sp, 3, ArmPolls, nil)
	assert.Equal(t, 1, result.ArmedCount)
	assert.Equal(t, uint64(3), lagging.Epoch().Load())
	assert.Equal(t, uint64(3), result.MinEpoch)
}

func TestScan_CollectStragglers(t *testing.T) {
	g := NewGlobalState()
	list := &testThreadList{members: []*testMutator{
		{id: "a", epoch: MutatorEpoch{value: 0}},
		{id: "b", epoch: MutatorEpoch{value: 9}},
	}}

	result := Scan(g, list, newTestSafepoints(), 5, CollectStragglers, nil)
	require.Len(t, result.Stragglers, 1)
	assert.Equal(t, "a", result.Stragglers[0].ThreadID())
}
