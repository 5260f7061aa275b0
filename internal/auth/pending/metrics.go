package pending

import "github.com/prometheus/client_golang/prometheus"

var (
	pendingEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monzo2discord_pending_authorizations",
		Help: "Authorization attempts waiting for their callback.",
	})
	pendingEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monzo2discord_pending_evictions_total",
		Help: "Pending authorizations removed because they expired.",
	}, []string{"reason"})
)

// MetricsCollectors returns pending store collectors for registration.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{pendingEntries, pendingEvictions}
}
