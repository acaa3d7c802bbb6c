package foundation

// pendingSyncCounter tracks the number of live Initiator values
// constructed with start_sync=true that have not yet observed Complete.
// A release build must not allocate or touch this field; it is gated
// behind the debugsync build tag so a production build pays nothing for
// it.
//
// debug_on.go / debug_off.go provide the two bodies for pendingSyncCounter
// and its methods, selected by the debugsync build tag.
