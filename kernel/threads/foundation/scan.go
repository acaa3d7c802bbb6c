package foundation

// ScanResult is the output of a single thread-scan pass.
type ScanResult struct {
	// MinEpoch is the minimum local_epoch observed across every scanned
	// mutator, wrap-aware. If no mutators were scanned, MinEpoch equals
	// the required frontier (vacuously synchronized).
	MinEpoch uint64
	// ArmedCount is how many lagging mutators had their poll armed
	// (ArmPolls mode only).
	ArmedCount int
	// Stragglers lists every mutator whose local_epoch was behind
	// required at observation time (CollectStragglers mode only).
	Stragglers []MutatorThread
}

// noMinYet marks that ScanResult.MinEpoch has not folded in any mutator
// yet; chosen so the very first real epoch value always looks "earlier".
const noMinYet = ^uint64(0)

// foldMin updates running wrap-aware minimum with a newly observed value.
func foldMin(min, e uint64) uint64 {
	if min == noMinYet || LtFrontier(e, min) {
		return e
	}
	return min
}

// Scan is the thread-scan closure: for every mutator in the
// stable thread list, it loads the local epoch, folds it into a running
// minimum, and — depending on mode — arms polls / performs in-scope
// updates, or records stragglers. self, if non-nil, is excluded from
// ArmPolls side effects since the caller (an initiator running as a
// mutator) has just updated its own epoch directly.
func Scan(g *GlobalState, threads ThreadList, safepoints SafepointController, required uint64, mode ScanMode, self MutatorThread) ScanResult {
	result := ScanResult{MinEpoch: noMinYet}

	threads.ForEachMutator(func(t MutatorThread) bool {
		e := t.Epoch().Load()

		if !LtFrontier(e, required) {
			result.MinEpoch = foldMin(result.MinEpoch, e)
			return true
		}

		switch mode {
		case ArmPolls:
			if self != nil && t.ThreadID() == self.ThreadID() {
				// The caller has just updated its own epoch; arming its
				// own poll would be a self-handshake for no reason.
				result.MinEpoch = foldMin(result.MinEpoch, e)
				return true
			}
			safepoints.ArmLocalPoll(t)
			result.ArmedCount++
			if scope, ok := safepoints.DelegateProcessingScope(t); ok {
				UpdateOther(t.Epoch(), g, scope)
				scope.Release()
				e = t.Epoch().Load()
			}
		case CollectStragglers:
			result.Stragglers = append(result.Stragglers, t)
		}

		result.MinEpoch = foldMin(result.MinEpoch, e)
		return true
	})

	if result.MinEpoch == noMinYet {
		result.MinEpoch = required
	}

	return result
}
