package foundation

import (
	"sync"
	"sync/atomic"

	"github.com/gcrefine/epochsync/kernel/utils"
)

// DeferredBuffer is the one collector-owned queue the safepoint reset is
// permitted to drain. It is a simple mutex-guarded FIFO of work items
// depending on a deferred synchronization.
type DeferredBuffer struct {
	mu    sync.Mutex
	items []interface{}
}

// Push enqueues a unit of dependent work whose Initiator returned
// Deferred.
func (b *DeferredBuffer) Push(item interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, item)
}

// Len reports how many deferred items are currently queued. The safepoint
// reset asserts pending_sync equals exactly this length.
func (b *DeferredBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Drain removes and returns every queued item, in FIFO order.
func (b *DeferredBuffer) Drain() []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}

// maybeScheduleReset implements the single-shot CAS scheduling guard: a
// reset is scheduled once required_frontier crosses
// cfg.EpochResetThreshold, or unconditionally if the
// TestEpochSyncInConcRefinement stress flag is set. Scheduling the actual
// VM operation is left to the caller's ServiceThread (package supervisor)
// so this package never has to import it — supervisor already depends on
// foundation's types, and the reverse import would cycle. Callers observe
// the CAS flip via GlobalState and hook their ServiceThread to it.
func maybeScheduleReset(g *GlobalState, cfg Config, deps InitiatorDeps, requiredFrontier uint64) {
	shouldSchedule := cfg.TestEpochSyncInConcRefinement || requiredFrontier >= cfg.EpochResetThreshold
	if !shouldSchedule {
		return
	}
	if !atomic.CompareAndSwapUint32(&g.resetScheduled, 0, 1) {
		return // already scheduled by a concurrent initiator
	}
	logSync(deps.Log, "epoch reset scheduled", requiredFrontier, 0)
	resetScheduledMetric.Inc()
}

// ResetScheduled reports whether a reset has been scheduled and not yet
// performed. A caller's ServiceThread polls or is notified of this to
// decide when to enqueue the actual VM operation running Reset.
func ResetScheduled(g *GlobalState) bool {
	return atomic.LoadUint32(&g.resetScheduled) != 0
}

// Reset performs the safepoint-time epoch reset. The caller must already
// be executing inside a stop-the-world safepoint operation (on the
// dedicated VM thread) — Reset does not acquire a safepoint itself, since
// acquiring one is VMOperationQueue's job, an external collaborator this
// package does not own.
//
// Reset zeroes global_epoch and global_frontier, zeroes every mutator's
// local_epoch (safe: all mutators are quiesced by the caller's
// safepoint), drains deferred, and asserts pending_sync equals
// len(deferred) before clearing reset_scheduled. A mismatch indicates a
// broken caller that failed to retry CheckSynchronized before the
// safepoint and is an invariant violation: Reset panics rather than
// silently reconciling, since leaving the mismatch in place would strand
// some caller waiting on a frontier that just vanished.
func Reset(g *GlobalState, threads ThreadList, deferred *DeferredBuffer) {
	inSafepoint.Store(true)
	defer inSafepoint.Store(false)

	drained := deferred.Drain()

	if DebugEnabled {
		if pending := PendingSync(g); pending != int64(len(drained)) {
			panic(utils.NewError("foundation: pending_sync does not match deferred buffer length at safepoint entry"))
		}
	}

	atomic.StoreUint64(&g.epoch, 0)
	atomic.StoreUint64(&g.frontier, 0)

	threads.ForEachMutator(func(t MutatorThread) bool {
		atomic.StoreUint64(&t.Epoch().value, 0)
		return true
	})

	atomic.StoreUint32(&g.resetScheduled, 0)

	// Initiators drained from the deferred buffer are the only ones
	// permitted to still be pending at this point; their completion is
	// the reprocessing queue's responsibility to re-drive, not Reset's.
	for range drained {
		g.pendingSync.dec()
	}

	resetsPerformedMetric.Inc()
}
