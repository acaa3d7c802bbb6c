package foundation

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goschedSpin yields the OS thread instead of busy-spinning this test into
// starving the real mutator goroutine on a small GOMAXPROCS.
type goschedSpin struct{}

func (goschedSpin) Wait() { runtime.Gosched() }

// TestUpdateSelfEstablishesHappensBeforeWithSynchronize is the round-trip
// property the whole protocol exists to prove: a mutator goroutine writes
// a plain (non-atomic) marker, sleeps briefly, then calls UpdateSelf. A
// separate initiator goroutine concurrently calls Synchronize, with no
// rendezvous channel standing in for the guarantee under test. Synchronize
// cannot return Complete until its own spin loop has observed the
// resulting epoch advance, so the marker write must be visible by then.
// Unlike every other test in this package, which drives the state machine
// through single-goroutine fakes, this one races two real goroutines
// against each other and is meant to be run with -race.
func TestUpdateSelfEstablishesHappensBeforeWithSynchronize(t *testing.T) {
	g := NewGlobalState()
	mutator := &testMutator{id: "writer"}
	list := &testThreadList{members: []*testMutator{mutator}}

	var marker int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		marker = 7 // plain, unsynchronized write
		UpdateSelf(mutator.Epoch(), g)
	}()

	in := New(g, true, DefaultConfig(), InitiatorDeps{
		Threads:    list,
		Handshake:  newFakeHandshake(),
		Safepoints: newTestSafepoints(),
		Clock:      clock.New(),
		SpinYield:  goschedSpin{},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	outcome := in.Synchronize(ctx)
	wg.Wait()

	require.Equal(t, Complete, outcome)
	assert.Equal(t, 7, marker)
}
