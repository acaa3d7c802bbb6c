// Package registry implements the collaborators that own mutator thread
// identity and liveness: a thread-safe registry mutators register into at
// startup and deregister from at shutdown, satisfying
// foundation.ThreadList for the epoch synchronization protocol.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gcrefine/epochsync/kernel/threads/foundation"
	"github.com/gcrefine/epochsync/kernel/utils"
)

// MutatorHandle is the concrete foundation.MutatorThread a registered
// mutator owns. It embeds foundation.MutatorEpoch directly so the
// mutator's own goroutine can call foundation.UpdateSelf on it without an
// extra indirection.
type MutatorHandle struct {
	id     string
	epoch  foundation.MutatorEpoch
	parked int32
}

// NewMutatorHandle allocates a handle with a fresh, globally unique
// thread ID.
func NewMutatorHandle() *MutatorHandle {
	return &MutatorHandle{id: uuid.NewString()}
}

func (h *MutatorHandle) ThreadID() string               { return h.id }
func (h *MutatorHandle) Epoch() *foundation.MutatorEpoch { return &h.epoch }
func (h *MutatorHandle) Parked() bool                    { return atomic.LoadInt32(&h.parked) == 1 }

// EnterParked marks the mutator as safely suspended in a blocking native
// call; a remote scanner may now request a DelegateProcessingScope on it.
func (h *MutatorHandle) EnterParked() { atomic.StoreInt32(&h.parked, 1) }

// ExitParked marks the mutator as running application code again; no
// remote thread may update its epoch from this point on.
func (h *MutatorHandle) ExitParked() { atomic.StoreInt32(&h.parked, 0) }

// ThreadRegistry is the thread-safe collection of live mutators.
type ThreadRegistry struct {
	mu      sync.RWMutex
	members map[string]*MutatorHandle
	log     *utils.Logger
}

// NewThreadRegistry constructs an empty registry. log may be nil.
func NewThreadRegistry(log *utils.Logger) *ThreadRegistry {
	return &ThreadRegistry{
		members: make(map[string]*MutatorHandle),
		log:     log,
	}
}

// Register adds a mutator to the live set. Safe to call concurrently with
// ForEachMutator: a scan in flight may or may not observe the new member,
// which is fine since the protocol only promises that every mutator live
// when fetch_add happened is scanned, not ones racing registration.
func (r *ThreadRegistry) Register(h *MutatorHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[h.ThreadID()] = h
	if r.log != nil {
		r.log.Debug("mutator registered", utils.String("thread_id", h.ThreadID()))
	}
}

// Deregister removes a mutator from the live set, e.g. on thread exit.
func (r *ThreadRegistry) Deregister(h *MutatorHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, h.ThreadID())
	if r.log != nil {
		r.log.Debug("mutator deregistered", utils.String("thread_id", h.ThreadID()))
	}
}

// Len reports the number of currently live mutators.
func (r *ThreadRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// ForEachMutator implements foundation.ThreadList. It takes a read lock
// for the duration of the snapshot copy only, not the whole visitor loop,
// so a visitor that blocks (arming a poll, waiting on a handshake) cannot
// starve concurrent Register/Deregister calls.
func (r *ThreadRegistry) ForEachMutator(visit func(foundation.MutatorThread) bool) {
	r.mu.RLock()
	snapshot := make([]*MutatorHandle, 0, len(r.members))
	for _, h := range r.members {
		snapshot = append(snapshot, h)
	}
	r.mu.RUnlock()

	for _, h := range snapshot {
		if !visit(h) {
			return
		}
	}
}
