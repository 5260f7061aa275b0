package auth

import "github.com/prometheus/client_golang/prometheus"

var authorizationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "monzo2discord_authorizations_total",
	Help: "Authorization flow steps by stage and outcome.",
}, []string{"stage", "outcome"})

// MetricsCollectors returns flow collectors for registration.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{authorizationsTotal}
}

func observe(stage string, err error) {
	authorizationsTotal.WithLabelValues(stage, OutcomeOf(err).String()).Inc()
}
