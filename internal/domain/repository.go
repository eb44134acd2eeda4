package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RecordLoader discovers raw payload files and extracts their records.
// Per-file failures are reported in the result, never as the returned error.
type RecordLoader interface {
	Load(ctx context.Context, dir string, patterns []string) (*LoadResult, error)
}

// Enrichment is what the external enrichment collaborator returns for a product
type Enrichment struct {
	Brand      string         `json:"brand,omitempty"`
	Model      string         `json:"model,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Confidence float64        `json:"confidence"`
}

// Enricher populates attributes, brand and model for a normalized product
type Enricher interface {
	Enrich(ctx context.Context, product *NormalizedProduct) (*Enrichment, error)
}

// Exporter writes a run report somewhere durable
type Exporter interface {
	Export(report *RunReport, path string) error
}
