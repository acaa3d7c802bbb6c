package foundation

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors this package exposes: plain
// fields of already-constructed collectors, registered once with a
// caller-supplied registry rather than the global default, so a demo
// process embedding this package doesn't collide with its own metrics.
type Metrics struct {
	HandshakesTotal   prometheus.Counter
	ResetsScheduled   prometheus.Counter
	ResetsPerformed   prometheus.Counter
	PendingSyncGauge  prometheus.GaugeFunc
	SynchronizeResult *prometheus.CounterVec
	SyncDuration      prometheus.Histogram
}

// NewMetrics constructs the collector set. The pending_sync gauge is
// always created and reads PendingSync(g) live, so in release builds
// (DebugEnabled false) it always reports zero.
func NewMetrics(g *GlobalState) *Metrics {
	m := &Metrics{
		HandshakesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epochsync_handshakes_total",
			Help: "Total number of asynchronous no-op handshakes posted to lagging mutators.",
		}),
		ResetsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epochsync_resets_scheduled_total",
			Help: "Total number of safepoint epoch resets scheduled.",
		}),
		ResetsPerformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epochsync_resets_performed_total",
			Help: "Total number of safepoint epoch resets actually performed.",
		}),
		SynchronizeResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epochsync_synchronize_total",
			Help: "Total Synchronize calls by outcome (complete, deferred).",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "epochsync_synchronize_duration_seconds",
			Help:    "Wall-clock time spent inside Synchronize.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.PendingSyncGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "epochsync_pending_sync",
		Help: "Debug-build count of initiators awaiting synchronization (always 0 in release builds).",
	}, func() float64 {
		return float64(PendingSync(g))
	})
	return m
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.HandshakesTotal,
		m.ResetsScheduled,
		m.ResetsPerformed,
		m.PendingSyncGauge,
		m.SynchronizeResult,
		m.SyncDuration,
	)
}

// resetScheduledMetric, resetsPerformedMetric and handshakesMetric are
// the collectors the package's free functions (maybeScheduleReset,
// Reset, Initiator.escalate) publish to. They default to freestanding,
// unregistered counters so importing this package never touches the
// default Prometheus registry; SetMetrics repoints them at a registered
// *Metrics during process wiring.
var (
	resetScheduledMetric  prometheus.Counter = prometheus.NewCounter(prometheus.CounterOpts{Name: "epochsync_resets_scheduled_total"})
	resetsPerformedMetric prometheus.Counter = prometheus.NewCounter(prometheus.CounterOpts{Name: "epochsync_resets_performed_total"})
	handshakesMetric      prometheus.Counter = prometheus.NewCounter(prometheus.CounterOpts{Name: "epochsync_handshakes_total"})
	syncResultMetric      *prometheus.CounterVec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "epochsync_synchronize_total"}, []string{"outcome"})
	syncDurationMetric    prometheus.Histogram = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "epochsync_synchronize_duration_seconds", Buckets: prometheus.DefBuckets})
)

// SetMetrics points the package's free-function collectors at m's
// already-registered counters. Call once during process wiring, before
// any Initiator is constructed.
func SetMetrics(m *Metrics) {
	resetScheduledMetric = m.ResetsScheduled
	resetsPerformedMetric = m.ResetsPerformed
	handshakesMetric = m.HandshakesTotal
	syncResultMetric = m.SynchronizeResult
	syncDurationMetric = m.SyncDuration
}
