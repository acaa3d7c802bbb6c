package foundation

import (
	"sync/atomic"

	"github.com/gcrefine/epochsync/kernel/utils"
)

// MutatorEpoch is the per-mutator local_epoch slot: an atomic counter in
// the thread's own thread-local block, readable by any thread
// via an acquire load, writable only by the owning thread itself or by a
// remote thread holding a DelegateScope that proves the owner is safely
// parked.
type MutatorEpoch struct {
	value uint64
}

// Load performs the acquire-load any thread (owner or remote observer) is
// permitted to make.
func (m *MutatorEpoch) Load() uint64 {
	return atomic.LoadUint64(&m.value)
}

// inSafepoint, when true, means the calling goroutine is currently
// executing inside the stop-the-world safepoint operation (Reset). Epoch
// updates and safepoint resets must never interleave: the reset zeroes
// every local_epoch while mutators are quiesced, and a concurrent
// update_self would race it.
//
// Modeled as a package-level flag rather than a parameter because the
// safepoint is, like global_epoch itself, a process-wide condition: any
// goroutine calling UpdateSelf during the window VMOperationQueue.Execute
// runs Reset's body is violating the discipline regardless of who it is.
var inSafepoint atomic.Bool

// UpdateSelf performs the mutator-side updater: an acquire-load of
// global_epoch released into the caller's own MutatorEpoch slot. It must
// be called only from the owning mutator thread, and never while a
// safepoint reset is in progress.
//
// The release-store here, paired with a remote acquire-load of the same
// slot, is what makes every store the mutator issued before this call
// visible to whichever initiator later observes the resulting value.
// UpdateSelf does not block; besides the atomic check of the safepoint
// guard it performs exactly two atomic operations.
func UpdateSelf(m *MutatorEpoch, g *GlobalState) {
	if inSafepoint.Load() {
		panic(utils.NewError("foundation: UpdateSelf called while a safepoint reset is in progress"))
	}
	e := LoadGlobalEpoch(g)
	atomic.StoreUint64(&m.value, e)
}

// UpdateOther has the same semantics as UpdateSelf but is performed by a
// remote thread that has already proven, via a DelegateScope, that the
// target mutator is safely parked and therefore cannot race the update.
// proof is any non-nil DelegateScope; UpdateOther rejects only nil and
// does not check that the scope came from a SafepointController.
func UpdateOther(m *MutatorEpoch, g *GlobalState, proof DelegateScope) {
	if proof == nil {
		panic(utils.NewError("foundation: UpdateOther requires a DelegateScope proving the target is parked"))
	}
	if inSafepoint.Load() {
		panic(utils.NewError("foundation: UpdateOther called while a safepoint reset is in progress"))
	}
	e := LoadGlobalEpoch(g)
	atomic.StoreUint64(&m.value, e)
}
