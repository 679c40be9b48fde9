// Package telemetry exposes Prometheus collectors for the pieces of the
// pipeline worth watching in production: searches, page fetches, cache
// traffic and Slack deliveries. All methods are nil-receiver safe so
// telemetry can be switched off wholesale.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	searches        *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	fetches         *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	slackDeliveries *prometheus.CounterVec
}

// New builds a Metrics set on a private registry so tests can hold
// several instances without collision.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpbot_searches_total",
			Help: "Knowledge-base searches by outcome.",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpbot_search_duration_seconds",
			Help:    "Wall time of one search, discovery through matching.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpbot_page_fetches_total",
			Help: "Article page fetches by result.",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpbot_cache_lookups_total",
			Help: "Article cache lookups by result.",
		}, []string{"result"}),
		slackDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpbot_slack_deliveries_total",
			Help: "Outbound Slack API calls by method and result.",
		}, []string{"method", "result"}),
	}
	m.registry.MustRegister(m.searches, m.searchDuration, m.fetches, m.cacheLookups, m.slackDeliveries)
	return m
}

// Handler serves the private registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SearchCompleted records one finished search. outcome is "ok", "empty" or
// "error".
func (m *Metrics) SearchCompleted(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) FetchCompleted(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.fetches.WithLabelValues("error").Inc()
		return
	}
	m.fetches.WithLabelValues("ok").Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) SlackDelivery(method string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.slackDeliveries.WithLabelValues(method, result).Inc()
}
