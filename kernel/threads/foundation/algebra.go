package foundation

import "sync/atomic"

// cacheLinePad isolates a field on its own cache line to avoid false
// sharing between global_epoch, global_frontier, and reset_scheduled,
// each of which is written from a different, hot, concurrently-running
// thread class (mutators, the initiator, the VM thread).
type cacheLinePad [56]byte

// GlobalState is the process-wide singleton backing the protocol:
// global_epoch, global_frontier, and reset_scheduled. It is constructed
// once at startup and referenced by every Initiator; nothing in this
// package keeps a package-level global so callers own the singleton's
// lifetime explicitly.
type GlobalState struct {
	epoch    uint64
	_        cacheLinePad
	frontier uint64
	_        cacheLinePad
	resetScheduled uint32
	_              cacheLinePad

	pendingSync pendingSyncCounter
}

// NewGlobalState returns a freshly initialized singleton: epoch and
// frontier both zero, no reset scheduled.
func NewGlobalState() *GlobalState {
	return &GlobalState{}
}

// LoadGlobalEpoch performs an acquire-load of global_epoch.
func LoadGlobalEpoch(g *GlobalState) uint64 {
	return atomic.LoadUint64(&g.epoch)
}

// loadGlobalFrontier performs an acquire-load of global_frontier.
func loadGlobalFrontier(g *GlobalState) uint64 {
	return atomic.LoadUint64(&g.frontier)
}

// fetchAddEpoch atomically increments global_epoch by one and returns the
// new value. On most architectures a read-modify-write atomic also acts
// as a full fence; every store the initiator issued before this call is
// ordered before every subsequent acquire-load of a mutator's
// local_epoch.
func fetchAddEpoch(g *GlobalState) uint64 {
	return atomic.AddUint64(&g.epoch, 1)
}

// LtFrontier implements the wrap-aware happens-before-frontier relation:
// lt(a, b) is true iff a is strictly "earlier" than b under a counter that
// may wrap. a - b, interpreted as the unsigned counter modulus, exceeding
// half the counter's range means a is behind b by a small (non-wrapped)
// amount. lt(a, a) is always false since a - a == 0 is never > half the
// range. Two live values never meaningfully differ by more than half the
// range in this protocol, since the counter only ever advances by one per
// initiation or resets to zero at a safepoint.
//
// Do not replace this with the language's native `<` on raw counters in
// hot paths — a wrapped counter makes `<` wrong exactly when it matters.
func LtFrontier(a, b uint64) bool {
	return (a - b) > (uint64(1) << 63)
}

// TryRaiseFrontier attempts, once, to raise global_frontier to observed.
// It CASes only if observed is strictly ahead of the current frontier and
// does not retry on CAS failure: a concurrent initiator that raised the
// frontier first is also progress, and a spurious loss here costs nothing
// but a rescan on the next check.
func TryRaiseFrontier(g *GlobalState, observed uint64) {
	for {
		cur := loadGlobalFrontier(g)
		if !LtFrontier(cur, observed) {
			return
		}
		if atomic.CompareAndSwapUint64(&g.frontier, cur, observed) {
			return
		}
		// Lost the race to a concurrent raiser. Its value may be behind
		// ours; the frontier still moved, and this attempt is not
		// repeated.
		return
	}
}
