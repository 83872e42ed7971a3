// Package metrics registers the Prometheus collectors of the proxy and the aggregator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Proxy request outcomes.
const (
	OutcomeCacheHit    = "cache_hit"
	OutcomeUpstream    = "upstream"
	OutcomeRateLimited = "rate_limited"
	OutcomeUpstreamErr = "upstream_error"
	OutcomeNetworkErr  = "network_error"
	OutcomeInvalid     = "invalid"
)

type Metrics struct {
	registry *prometheus.Registry

	ProxyRequests    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	QuotaUsed        *prometheus.GaugeVec
	Retries          *prometheus.CounterVec
	AdapterFailures  *prometheus.CounterVec
	FeedArticles     *prometheus.GaugeVec
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ProxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsfeed",
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Proxy requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsfeed",
			Subsystem: "proxy",
			Name:      "upstream_duration_seconds",
			Help:      "Latency of upstream calls including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		QuotaUsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "newsfeed",
			Subsystem: "proxy",
			Name:      "quota_used",
			Help:      "Requests counted against today's quota.",
		}, []string{"provider"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsfeed",
			Subsystem: "proxy",
			Name:      "retries_total",
			Help:      "Upstream retries after transport errors.",
		}, []string{"provider"}),
		AdapterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsfeed",
			Subsystem: "aggregator",
			Name:      "adapter_failures_total",
			Help:      "Failed adapter calls by call name.",
		}, []string{"call"}),
		FeedArticles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "newsfeed",
			Subsystem: "aggregator",
			Name:      "feed_articles",
			Help:      "Articles in the last assembled feed.",
		}, []string{"feed"}),
	}
	reg.MustRegister(
		m.ProxyRequests,
		m.UpstreamDuration,
		m.QuotaUsed,
		m.Retries,
		m.AdapterFailures,
		m.FeedArticles,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
