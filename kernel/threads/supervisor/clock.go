package supervisor

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/gcrefine/epochsync/kernel/threads/foundation"
)

// RealClock adapts benbjohnson/clock.Clock to foundation.Clock. Tests
// construct supervisor deps around a clock.Mock instead, so the same
// Initiator code exercises the timeout escalation path deterministically.
type RealClock struct {
	c clock.Clock
}

// NewRealClock wraps the real wall clock.
func NewRealClock() *RealClock {
	return &RealClock{c: clock.New()}
}

// NewClockFrom wraps an arbitrary clock.Clock, e.g. a *clock.Mock in
// tests.
func NewClockFrom(c clock.Clock) *RealClock {
	return &RealClock{c: c}
}

func (r *RealClock) Now() time.Time { return r.c.Now() }

// SpinYielder implements foundation.SpinYield by sleeping a small fixed
// interval on the wrapped clock, standing in for a CPU pause/yield
// instruction between re-checks of the fast path.
type SpinYielder struct {
	c        clock.Clock
	interval time.Duration
}

// NewSpinYielder constructs a yielder that sleeps interval between spins.
// A *clock.Mock passed here never actually sleeps wall time, so tests can
// drive the spin loop by advancing the mock explicitly.
func NewSpinYielder(c clock.Clock, interval time.Duration) *SpinYielder {
	if interval <= 0 {
		interval = 50 * time.Microsecond
	}
	return &SpinYielder{c: c, interval: interval}
}

func (s *SpinYielder) Wait() {
	s.c.Sleep(s.interval)
}

var _ foundation.Clock = (*RealClock)(nil)
var _ foundation.SpinYield = (*SpinYielder)(nil)
