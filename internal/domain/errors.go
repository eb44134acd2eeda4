package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnsupportedShape is returned when a JSON payload is neither a product
	// list nor a wrapper object with a recognised list key
	ErrUnsupportedShape = errors.New("unsupported payload shape")

	// ErrNoInputFiles is returned when no file matched the ingest patterns
	ErrNoInputFiles = errors.New("no input files matched")

	// ErrRunNotFound is returned when a run report is not (or no longer) cached
	ErrRunNotFound = errors.New("run not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrEnrichmentFailure is returned when the enrichment service request fails
	ErrEnrichmentFailure = errors.New("enrichment request failed")

	// ErrLowConfidence is returned when an enrichment result is below the threshold
	ErrLowConfidence = errors.New("enrichment confidence below threshold")

	// ErrExportFormat is returned for an unknown export format
	ErrExportFormat = errors.New("unsupported export format")
)
