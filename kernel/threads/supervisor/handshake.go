package supervisor

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gcrefine/epochsync/kernel/threads/foundation"
)

// Handshake implements foundation.HandshakeFramework: posting a one-shot
// no-op callable against a target thread, deduplicated so two concurrent
// initiators escalating against the same straggler don't post the
// callable twice. singleflight.Group collapses concurrent calls for the
// same target into one in-flight execution; inFlight is kept alongside it
// purely so HasPending can answer synchronously without blocking on the
// group itself.
type Handshake struct {
	group singleflight.Group
	mu    sync.Mutex
	inFlight map[string]bool
}

// NewHandshake constructs an empty handshake framework.
func NewHandshake() *Handshake {
	return &Handshake{inFlight: make(map[string]bool)}
}

// TryExecuteAsync implements foundation.HandshakeFramework. fn runs on
// its own goroutine; if a handshake against the same target is already
// in flight, this call is absorbed into it instead of posting a second
// one (singleflight.Group.DoChan dedups by key).
func (h *Handshake) TryExecuteAsync(target foundation.MutatorThread, fn func()) {
	id := target.ThreadID()

	h.mu.Lock()
	h.inFlight[id] = true
	h.mu.Unlock()

	h.group.DoChan(id, func() (interface{}, error) {
		defer func() {
			h.mu.Lock()
			delete(h.inFlight, id)
			h.mu.Unlock()
		}()
		fn()
		return nil, nil
	})
}

// HasPending implements foundation.HandshakeFramework.
func (h *Handshake) HasPending(target foundation.MutatorThread) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inFlight[target.ThreadID()]
}

var _ foundation.HandshakeFramework = (*Handshake)(nil)
