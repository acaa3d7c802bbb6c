//go:build !debugsync

package foundation

// pendingSyncCounter is a zero-size no-op in release builds: no
// allocation, no atomic traffic.
type pendingSyncCounter struct{}

func (c *pendingSyncCounter) inc()        {}
func (c *pendingSyncCounter) dec()        {}
func (c *pendingSyncCounter) load() int64 { return 0 }

// DebugEnabled reports whether pending_sync tracking is compiled in.
const DebugEnabled = false

// PendingSync always returns 0 in release builds.
func PendingSync(g *GlobalState) int64 {
	return 0
}
