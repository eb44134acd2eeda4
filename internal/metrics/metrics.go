package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks catalog runs by outcome
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_runs_total",
		Help: "Total number of catalog runs",
	}, []string{"status"})

	// RunDurationSeconds tracks how long a full catalog run takes
	RunDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_run_duration_seconds",
		Help:    "Duration of catalog runs in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	// FilesSkippedTotal tracks input files that could not be parsed
	FilesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_files_skipped_total",
		Help: "Total number of input files skipped as unreadable",
	})

	// RecordsIngestedTotal tracks raw records read from input files
	RecordsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_records_ingested_total",
		Help: "Total number of raw records ingested",
	})

	// RecordsNormalizedTotal tracks normalized products by retailer
	RecordsNormalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_records_normalized_total",
		Help: "Total number of records normalized",
	}, []string{"retailer"})

	// RecordsRejectedTotal tracks records dropped for a missing name
	RecordsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_records_rejected_total",
		Help: "Total number of records rejected during normalization",
	})

	// PairsComparedTotal tracks cross-retailer comparisons performed
	PairsComparedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_pairs_compared_total",
		Help: "Total number of candidate pairs compared",
	})

	// PairsMatchedTotal tracks accepted match pairs
	PairsMatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_pairs_matched_total",
		Help: "Total number of accepted match pairs",
	})

	// EnrichmentRequestsTotal tracks enrichment calls by outcome
	EnrichmentRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_enrichment_requests_total",
		Help: "Total number of enrichment requests",
	}, []string{"outcome"})

	// HTTPRequestsTotal tracks HTTP requests by path and status code
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "code"})
)

// RecordRun records the outcome and duration of a catalog run
func RecordRun(status string, d time.Duration) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDurationSeconds.Observe(d.Seconds())
}

// RecordNormalized increments the normalized counter for a retailer
func RecordNormalized(retailer string) {
	if retailer == "" {
		retailer = "unknown"
	}
	RecordsNormalizedTotal.WithLabelValues(retailer).Inc()
}

// RecordEnrichment increments the enrichment counter for an outcome
func RecordEnrichment(outcome string) {
	EnrichmentRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest increments the HTTP request counter
func RecordHTTPRequest(path, code string) {
	HTTPRequestsTotal.WithLabelValues(path, code).Inc()
}
