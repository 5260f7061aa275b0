package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	relaysActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monzo2discord_relays",
		Help: "Activated relays.",
	})
	messagesRelayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monzo2discord_messages_relayed_total",
		Help: "Messages forwarded to chat webhooks by result.",
	}, []string{"result"})
)

// MetricsCollectors returns relay collectors for registration.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{relaysActive, messagesRelayed}
}
