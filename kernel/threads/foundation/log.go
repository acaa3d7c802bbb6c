package foundation

import "github.com/gcrefine/epochsync/kernel/utils"

// logSync emits a debug record for one step of an Initiator's state
// machine, tagged {gc, refine, handshake} so a log aggregator can filter
// this subsystem out of the surrounding collector's general chatter. log
// may be nil, in which case the call is a no-op: most Synchronize calls
// happen on a hot path and a caller that didn't wire a Logger is opting
// out, not misconfigured.
func logSync(log *utils.Logger, msg string, requiredFrontier uint64, acted int) {
	if log == nil {
		return
	}
	log.Debug(msg,
		utils.String("subsystem", "gc"),
		utils.String("stage", "refine"),
		utils.String("action", "handshake"),
		utils.Uint64("required_frontier", requiredFrontier),
		utils.Int("acted", acted),
	)
}
