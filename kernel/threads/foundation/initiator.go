package foundation

import (
	"context"

	"github.com/gcrefine/epochsync/kernel/utils"
)

// InitiatorDeps bundles the external collaborators an Initiator needs to
// drive its state machine. All fields are required except Self,
// Suspendible and Log.
type InitiatorDeps struct {
	Threads    ThreadList
	Handshake  HandshakeFramework
	Safepoints SafepointController
	Clock      Clock
	SpinYield  SpinYield
	// Suspendible, if set, is consulted during the spin loop; ShouldYield
	// returning true ends the spin early with Deferred, cooperating with
	// a pending stop-the-world safepoint.
	Suspendible SuspendibleThreadSet
	// Self identifies the calling thread when the initiator is itself a
	// mutator, so it can update its own epoch first and so scans skip
	// arming its own poll.
	Self MutatorThread
	// Log receives structured debug records; if nil, logging is skipped.
	Log *utils.Logger
}

// Initiator is the stack-local, per-call state machine that drives one
// synchronization. It is not safe to share across goroutines; each call
// to New should be made by the thread that will drive it.
type Initiator struct {
	g                *GlobalState
	cfg              Config
	deps             InitiatorDeps
	requiredFrontier uint64
	doneOnce         bool
}

// New constructs an initiator value. When startSync is true, it performs
// fetch_add(global_epoch, 1): the returned required_frontier is strictly
// ahead of any local_epoch that existed before the call, and the
// read-modify-write also acts as a full fence ordering the caller's prior
// operations before every subsequent read of a mutator's local_epoch.
// This also runs the reset-threshold check and, in debug builds,
// increments pending_sync.
//
// When startSync is false, required_frontier is the sentinel 0, which
// LtFrontier classifies as already satisfied by any global_frontier ≥ 0 —
// trivially synchronized.
func New(g *GlobalState, startSync bool, cfg Config, deps InitiatorDeps) *Initiator {
	in := &Initiator{g: g, cfg: cfg, deps: deps}
	if !startSync {
		// Nothing was added to pending_sync, so nothing is taken off it.
		in.doneOnce = true
		return in
	}
	in.requiredFrontier = fetchAddEpoch(g)
	g.pendingSync.inc()
	maybeScheduleReset(g, cfg, deps, in.requiredFrontier)
	return in
}

// RequiredFrontier returns the frontier this initiator must observe
// before it is synchronized. Exposed for debugging/logging.
func (in *Initiator) RequiredFrontier() uint64 {
	return in.requiredFrontier
}

// CheckSynchronized is the fast probe. It updates the caller's own epoch
// if the caller is itself a mutator, consults the memoized
// global_frontier, and falls back to a full scan only if the memo is
// stale. On returning true for the first time, it decrements pending_sync
// exactly once; a second call after the first true is a no-op in
// observable state.
func (in *Initiator) CheckSynchronized() bool {
	if in.deps.Self != nil {
		UpdateSelf(in.deps.Self.Epoch(), in.g)
	}

	if !LtFrontier(loadGlobalFrontier(in.g), in.requiredFrontier) {
		in.markDone()
		return true
	}

	result := Scan(in.g, in.deps.Threads, in.deps.Safepoints, in.requiredFrontier, Observe, in.deps.Self)
	if !LtFrontier(result.MinEpoch, in.requiredFrontier) {
		TryRaiseFrontier(in.g, result.MinEpoch)
		in.markDone()
		return true
	}

	return false
}

// markDone decrements pending_sync exactly once per started initiator
// (startSync=true; New marks the others done up front), the first
// time CheckSynchronized (directly, or via Synchronize) observes success.
func (in *Initiator) markDone() {
	if in.doneOnce {
		return
	}
	in.doneOnce = true
	in.g.pendingSync.dec()
}

// Synchronize drives the full state machine to Complete or Deferred. It
// never blocks longer than cfg.WaitTimeout, and it never returns an
// error: timeout is the designed escalation path, not a failure.
func (in *Initiator) Synchronize(ctx context.Context) Outcome {
	start := in.deps.Clock.Now()
	outcome := in.synchronize(ctx)
	syncDurationMetric.Observe(in.deps.Clock.Now().Sub(start).Seconds())
	syncResultMetric.WithLabelValues(outcome.String()).Inc()
	return outcome
}

func (in *Initiator) synchronize(ctx context.Context) Outcome {
	if in.CheckSynchronized() {
		logSync(in.deps.Log, "fast-check complete", in.requiredFrontier, 0)
		return Complete
	}

	acted := in.escalate()
	if acted == 0 {
		// Every straggler caught up to the frontier during the scan
		// itself; nothing needed posting.
		if in.CheckSynchronized() {
			return Complete
		}
	}

	deadline := in.deps.Clock.Now().Add(in.cfg.WaitTimeout)
	for {
		select {
		case <-ctx.Done():
			logSync(in.deps.Log, "synchronize deferred: context canceled", in.requiredFrontier, acted)
			return Deferred
		default:
		}

		in.deps.SpinYield.Wait()

		if in.CheckSynchronized() {
			logSync(in.deps.Log, "synchronize complete after spin", in.requiredFrontier, acted)
			return Complete
		}

		if in.deps.Suspendible != nil && in.deps.Suspendible.ShouldYield() {
			logSync(in.deps.Log, "synchronize deferred: yield requested", in.requiredFrontier, acted)
			return Deferred
		}

		if !in.deps.Clock.Now().Before(deadline) {
			logSync(in.deps.Log, "synchronize deferred: timeout", in.requiredFrontier, acted)
			return Deferred
		}
	}
}

// escalate runs the variant-B scan (arm polls + in-scope update), and for
// every straggler the safepoint controller could not immediately process
// in-scope, falls back to variant A: posting an asynchronous no-op
// handshake, deduplicated against any handshake already pending on that
// target. It returns the number of actions taken: one per armed poll plus
// one per posted handshake, so a mutator handled by both paths counts
// twice.
func (in *Initiator) escalate() int {
	armResult := Scan(in.g, in.deps.Threads, in.deps.Safepoints, in.requiredFrontier, ArmPolls, in.deps.Self)

	strayResult := Scan(in.g, in.deps.Threads, in.deps.Safepoints, in.requiredFrontier, CollectStragglers, in.deps.Self)

	acted := armResult.ArmedCount
	for _, t := range strayResult.Stragglers {
		if in.deps.Self != nil && t.ThreadID() == in.deps.Self.ThreadID() {
			continue
		}
		if in.deps.Handshake.HasPending(t) {
			continue
		}
		target := t
		in.deps.Handshake.TryExecuteAsync(target, func() {
			UpdateSelf(target.Epoch(), in.g)
		})
		handshakesMetric.Inc()
		acted++
	}

	logSync(in.deps.Log, "escalated", in.requiredFrontier, acted)
	return acted
}

// NoTimeout is a convenience context for demos/tests that never want the
// ctx.Done() escalation path to fire; cancel it explicitly to exercise
// that path.
func NoTimeout() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}
