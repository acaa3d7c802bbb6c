package supervisor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcrefine/epochsync/kernel/threads/foundation"
)

type fakeMutator struct {
	id     string
	epoch  foundation.MutatorEpoch
	parked bool
}

func (f *fakeMutator) ThreadID() string               { return f.id }
func (f *fakeMutator) Epoch() *foundation.MutatorEpoch { return &f.epoch }
func (f *fakeMutator) Parked() bool                    { return f.parked }

func TestHandshake_TryExecuteAsyncRuns(t *testing.T) {
	h := NewHandshake()
	target := &fakeMutator{id: "t1"}

	var ran int32
	var wg sync.WaitGroup
	wg.Add(1)
	h.TryExecuteAsync(target, func() {
		atomic.StoreInt32(&ran, 1)
		wg.Done()
	})
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestHandshake_HasPendingDuringExecution(t *testing.T) {
	h := NewHandshake()
	target := &fakeMutator{id: "t1"}

	started := make(chan struct{})
	release := make(chan struct{})
	go h.TryExecuteAsync(target, func() {
		close(started)
		<-release
	})

	<-started
	assert.True(t, h.HasPending(target))
	close(release)

	require.Eventually(t, func() bool {
		return !h.HasPending(target)
	}, time.Second, time.Millisecond)
}

func TestHandshake_DedupesConcurrentCalls(t *testing.T) {
	h := NewHandshake()
	target := &fakeMutator{id: "t1"}

	var calls int32
	block := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			h.TryExecuteAsync(target, func() {
				atomic.AddInt32(&calls, 1)
				<-block
			})
		}()
	}

	require.Eventually(t, func() bool { return h.HasPending(target) }, time.Second, time.Millisecond)
	// Both posts return at once; waiting for them while the first callable
	// is still blocked makes sure the second one overlaps it.
	wg.Wait()
	close(block)

	require.Eventually(t, func() bool { return !h.HasPending(target) }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
