//go:build debugsync

package foundation

import "sync/atomic"

// pendingSyncCounter is a real atomic counter in debug builds.
type pendingSyncCounter struct {
	n int64
}

func (c *pendingSyncCounter) inc() { atomic.AddInt64(&c.n, 1) }
func (c *pendingSyncCounter) dec() { atomic.AddInt64(&c.n, -1) }
func (c *pendingSyncCounter) load() int64 {
	return atomic.LoadInt64(&c.n)
}

// DebugEnabled reports whether pending_sync tracking is compiled in.
const DebugEnabled = true

// PendingSync returns the current pending_sync count. Only meaningful
// when DebugEnabled is true.
func PendingSync(g *GlobalState) int64 {
	return g.pendingSync.load()
}
