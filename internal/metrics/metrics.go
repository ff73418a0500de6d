// Package metrics defines Prometheus metrics for the memory engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragmemory_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragmemory_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragmemory_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	IngestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragmemory_ingestions_total",
			Help: "Total ingestion operations by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	ChunksPersisted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ragmemory_chunks_persisted_total",
			Help: "Total chunks written to the document store",
		},
	)

	GraphEnrichmentFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ragmemory_graph_enrichment_failures_total",
			Help: "Episode creations that failed after document commit",
		},
	)

	DeletionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragmemory_deletion_failures_total",
			Help: "Centralized deletion procedure failures by stage",
		},
		[]string{"stage"},
	)

	CrawlPagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragmemory_crawl_pages_fetched_total",
			Help: "Pages fetched during crawls by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		IngestionsTotal, ChunksPersisted,
		GraphEnrichmentFailures, DeletionFailures, CrawlPagesFetched,
	)
}
