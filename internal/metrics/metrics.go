// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of backend calls by resource group.",
			Buckets: prometheus.DefBuckets,
		}, []string{"group"})

	GatewayErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Backend call failures by resource group and failure kind.",
		}, []string{"group", "kind"})

	PublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publish_total",
			Help: "Publish operations by mode and outcome.",
		}, []string{"mode", "outcome"})

	PublishStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "publish_step_duration_seconds",
			Help:    "Duration of individual publish steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"})

	LiveSitesCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_sites_cached",
			Help: "Number of live-site snapshots currently held in memory.",
		})

	LiveSiteCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "live_site_cache_hits_total",
			Help: "Live-site reads served from memory.",
		})

	LiveSiteCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "live_site_cache_misses_total",
			Help: "Live-site reads that went to the backend.",
		})

	LiveSiteEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "live_site_evict_total",
			Help: "Live-site cache entries evicted on idle TTL or LRU pressure.",
		})

	DomainLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_lookup_total",
			Help: "Domain resolutions by result (hit, miss, not_found, error).",
		}, []string{"result"})

	AnalyticsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_dropped_total",
			Help: "Analytics events dropped because the queue was full or delivery failed.",
		})
)

func init() {
	prometheus.MustRegister(
		GatewayRequestDuration,
		GatewayErrorsTotal,
		PublishTotal,
		PublishStepDuration,
		LiveSitesCached,
		LiveSiteCacheHits,
		LiveSiteCacheMisses,
		LiveSiteEvictTotal,
		DomainLookupTotal,
		AnalyticsDroppedTotal,
	)
}
