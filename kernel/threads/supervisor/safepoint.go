package supervisor

import (
	"sync"
	"sync/atomic"

	"github.com/gcrefine/epochsync/kernel/threads/foundation"
)

// SafepointController implements foundation.SafepointController. It
// tracks, per mutator thread ID, whether a poll has been armed and
// whether a DelegateProcessingScope is currently checked out, using the
// same per-key map+RWMutex double-checked-lock shape as the rest of this
// package's collaborators.
type SafepointController struct {
	mu    sync.RWMutex
	state map[string]*pollState
}

type pollState struct {
	armed     uint32 // 0 = clear, 1 = armed (atomic)
	delegated uint32 // 0 = free, 1 = checked out (atomic)
}

// NewSafepointController constructs an empty controller.
func NewSafepointController() *SafepointController {
	return &SafepointController{state: make(map[string]*pollState)}
}

func (s *SafepointController) stateFor(id string) *pollState {
	s.mu.RLock()
	st, ok := s.state[id]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state[id]; ok {
		return st
	}
	st = &pollState{}
	s.state[id] = st
	return st
}

// ArmLocalPoll implements foundation.SafepointController. In this
// in-process model, arming a poll just flags the target for its own next
// voluntary check; a mutator with a real safepoint poll instruction would
// observe this flag and call foundation.UpdateSelf itself.
func (s *SafepointController) ArmLocalPoll(target foundation.MutatorThread) {
	st := s.stateFor(target.ThreadID())
	atomic.StoreUint32(&st.armed, 1)
}

// PollArmed reports whether ArmLocalPoll has been called for id and not
// yet cleared by ClearPoll. Mutators call this at their own safepoint
// poll point.
func (s *SafepointController) PollArmed(id string) bool {
	st := s.stateFor(id)
	return atomic.LoadUint32(&st.armed) != 0
}

// ClearPoll clears the armed flag, normally called by the mutator itself
// right after it has updated its own epoch in response to a poll.
func (s *SafepointController) ClearPoll(id string) {
	st := s.stateFor(id)
	atomic.StoreUint32(&st.armed, 0)
}

// DelegateProcessingScope implements foundation.SafepointController. It
// only grants a scope if target reports itself parked, and only one scope
// may be checked out per target at a time; a second concurrent caller
// gets ok=false rather than blocking, since the scan that wants the scope
// is willing to treat "currently delegated elsewhere" the same as
// "not parked" and fall back to variant A.
func (s *SafepointController) DelegateProcessingScope(target foundation.MutatorThread) (foundation.DelegateScope, bool) {
	if !target.Parked() {
		return nil, false
	}
	st := s.stateFor(target.ThreadID())
	if !atomic.CompareAndSwapUint32(&st.delegated, 0, 1) {
		return nil, false
	}
	return &delegateScope{st: st}, true
}

// delegateScope is the single-release proof handed back by
// DelegateProcessingScope.
type delegateScope struct {
	st       *pollState
	released sync.Once
}

func (d *delegateScope) Release() {
	d.released.Do(func() {
		atomic.StoreUint32(&d.st.delegated, 0)
	})
}

var _ foundation.SafepointController = (*SafepointController)(nil)
