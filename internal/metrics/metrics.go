// Package metrics exposes Prometheus instrumentation for the analysis
// pipeline and the last.fm client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup outcomes.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheStale   = "stale"
	CacheExpired = "expired"
	CacheError   = "error"
	CacheForced  = "forced"
)

var (
	// GenealogyComputations counts full pipeline runs, i.e. cache misses that
	// led to recomputation.
	GenealogyComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genealogy_computations_total",
			Help: "Total number of genealogy recomputations",
		},
		[]string{"mode", "granularity"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genealogy_cache_lookups_total",
			Help: "Genealogy cache lookups by outcome",
		},
		[]string{"result"},
	)

	CacheWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genealogy_cache_write_errors_total",
			Help: "Total number of failed genealogy cache writes",
		},
	)

	TracksClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genealogy_tracks_total",
			Help: "Tracks processed by the matcher, by outcome",
		},
		[]string{"outcome"}, // "classified", "unclassified"
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genealogy_analysis_duration_seconds",
			Help:    "Duration of analysis requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"}, // "cache", "computed"
	)

	LastfmRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lastfm_requests_total",
			Help: "last.fm API requests by method and status",
		},
		[]string{"method", "status"},
	)
)

// WriteFile dumps every registered metric to path in the Prometheus text
// format, for pickup by a node_exporter textfile collector.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
