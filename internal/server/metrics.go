package server

import (
	"net/http"

	"github.com/brizzai/monzo2discord/internal/auth"
	"github.com/brizzai/monzo2discord/internal/auth/pending"
	"github.com/brizzai/monzo2discord/internal/relay"
	"github.com/brizzai/monzo2discord/internal/requester"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry builds a registry from every package's collectors.
func MetricsRegistry(version string) *prometheus.Registry {
	registry := prometheus.NewRegistry()

	groups := [][]prometheus.Collector{
		requester.MetricsCollectors(),
		pending.MetricsCollectors(),
		auth.MetricsCollectors(),
		relay.MetricsCollectors(),
	}
	for _, group := range groups {
		for _, collector := range group {
			registry.MustRegister(collector)
		}
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "monzo2discord_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"version": version},
		}, func() float64 { return 1 }),
	)
	return registry
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
