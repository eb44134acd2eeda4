package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/precioscl/backend/internal/domain"
	"github.com/precioscl/backend/internal/metrics"
)

const runCachePrefix = "run:"

// CatalogServiceConfig holds configuration for the catalog service
type CatalogServiceConfig struct {
	IngestDir               string
	Patterns                []string
	CacheTTL                time.Duration
	EnrichmentMinConfidence float64
}

// CatalogService runs the ingest, normalize, enrich and match pipeline
type CatalogService struct {
	loader     domain.RecordLoader
	normalizer *Normalizer
	matcher    *MatchingService
	enricher   domain.Enricher
	cache      domain.CacheRepository
	config     CatalogServiceConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// RunRequest selects the input of a batch run. Empty fields use the
// configured ingest directory and patterns.
type RunRequest struct {
	Dir      string
	Patterns []string
}

// NormalizeResult is the output of normalizing an in-memory batch
type NormalizeResult struct {
	Products []domain.NormalizedProduct `json:"products"`
	Summary  domain.BatchSummary        `json:"summary"`
}

// typedCache is implemented by caches that can decode into a concrete type
type typedCache interface {
	GetInto(ctx context.Context, key string, dst any) error
}

// NewCatalogService creates a catalog service. enricher may be nil when
// enrichment is disabled.
func NewCatalogService(
	loader domain.RecordLoader,
	normalizer *Normalizer,
	matcher *MatchingService,
	enricher domain.Enricher,
	cache domain.CacheRepository,
	config CatalogServiceConfig,
	logger zerolog.Logger,
) *CatalogService {
	if config.CacheTTL == 0 {
		config.CacheTTL = 24 * time.Hour
	}
	if len(config.Patterns) == 0 {
		config.Patterns = []string{"*.json"}
	}

	return &CatalogService{
		loader:     loader,
		normalizer: normalizer,
		matcher:    matcher,
		enricher:   enricher,
		cache:      cache,
		config:     config,
		logger:     logger.With().Str("component", "catalog").Logger(),
		now:        time.Now,
	}
}

// Run executes one batch over a directory.
// Flow: load files -> normalize -> enrich -> match -> summarize -> cache
func (s *CatalogService) Run(ctx context.Context, request RunRequest) (*domain.RunReport, error) {
	started := s.now()
	runID := uuid.NewString()

	dir := request.Dir
	if dir == "" {
		dir = s.config.IngestDir
	}
	patterns := request.Patterns
	if len(patterns) == 0 {
		patterns = s.config.Patterns
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: ingest directory is required", domain.ErrInvalidRequest)
	}

	loaded, err := s.loader.Load(ctx, dir, patterns)
	if err != nil {
		metrics.RecordRun("failure", s.now().Sub(started))
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	products, summary := s.normalize(ctx, loaded.Records)
	summary.FilesScanned = loaded.FilesScanned
	summary.FilesSkipped = loaded.FilesSkipped()
	summary.FilesEmpty = loaded.FilesEmpty

	match, err := s.matcher.FindMatches(ctx, products)
	if err != nil {
		metrics.RecordRun("failure", s.now().Sub(started))
		return nil, fmt.Errorf("failed to match products: %w", err)
	}
	summary.Buckets = match.Buckets
	summary.PairsCompared = match.PairsCompared
	summary.PairsMatched = len(match.Pairs)
	summary.Duration = s.now().Sub(started)

	report := &domain.RunReport{
		RunID:        runID,
		StartedAt:    started,
		Summary:      summary,
		Products:     products,
		Pairs:        match.Pairs,
		SkippedFiles: loaded.Skipped,
	}

	metrics.FilesSkippedTotal.Add(float64(summary.FilesSkipped))
	metrics.PairsComparedTotal.Add(float64(summary.PairsCompared))
	metrics.PairsMatchedTotal.Add(float64(summary.PairsMatched))
	metrics.RecordRun("success", summary.Duration)

	if s.cache != nil {
		if err := s.cache.Set(ctx, runCachePrefix+runID, report, s.config.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("run_id", runID).Msg("failed to cache run report")
		}
	}

	s.logger.Info().
		Str("run_id", runID).
		Str("dir", dir).
		Int("files_scanned", summary.FilesScanned).
		Int("files_skipped", summary.FilesSkipped).
		Int("records_ingested", summary.RecordsIngested).
		Int("records_normalized", summary.RecordsNormalized).
		Int("pairs_matched", summary.PairsMatched).
		Dur("duration", summary.Duration).
		Msg("catalog run completed")

	return report, nil
}

// NormalizeRecords normalizes (and enriches, when configured) an in-memory batch
func (s *CatalogService) NormalizeRecords(ctx context.Context, records []domain.RawRecord) (*NormalizeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := s.now()
	products, summary := s.normalize(ctx, records)
	summary.Duration = s.now().Sub(started)
	return &NormalizeResult{Products: products, Summary: summary}, nil
}

// MatchProducts matches already-normalized products. Nil thresholds keep the
// configured values; out-of-range thresholds are rejected.
func (s *CatalogService) MatchProducts(
	ctx context.Context,
	products []domain.NormalizedProduct,
	minTokenSimilarity *int,
	minAttributeScore *float64,
) (*MatchResult, error) {
	for i := range products {
		if products[i].ProductID == "" {
			return nil, fmt.Errorf("%w: product %d has no product_id", domain.ErrInvalidRequest, i)
		}
	}

	matcher := s.matcher
	if minTokenSimilarity != nil || minAttributeScore != nil {
		minSim, minAttr := matcher.minTokenSimilarity, matcher.minAttributeScore
		if minTokenSimilarity != nil {
			if *minTokenSimilarity < 0 || *minTokenSimilarity > 100 {
				return nil, fmt.Errorf("%w: min_token_similarity must be within [0,100]", domain.ErrInvalidRequest)
			}
			minSim = *minTokenSimilarity
		}
		if minAttributeScore != nil {
			if *minAttributeScore < 0 || *minAttributeScore > 1 {
				return nil, fmt.Errorf("%w: min_attr_score must be within [0,1]", domain.ErrInvalidRequest)
			}
			minAttr = *minAttributeScore
		}
		matcher = matcher.WithThresholds(minSim, minAttr)
	}

	result, err := matcher.FindMatches(ctx, products)
	if err != nil {
		return nil, err
	}
	metrics.PairsComparedTotal.Add(float64(result.PairsCompared))
	metrics.PairsMatchedTotal.Add(float64(len(result.Pairs)))
	return result, nil
}

// GetRun returns a cached run report
func (s *CatalogService) GetRun(ctx context.Context, runID string) (*domain.RunReport, error) {
	if runID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if s.cache == nil {
		return nil, domain.ErrRunNotFound
	}

	key := runCachePrefix + runID
	var report domain.RunReport

	if typed, ok := s.cache.(typedCache); ok {
		if err := typed.GetInto(ctx, key, &report); err != nil {
			return nil, cacheLookupError(err)
		}
		return &report, nil
	}

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, cacheLookupError(err)
	}
	if r, ok := cached.(*domain.RunReport); ok {
		return r, nil
	}

	// Generic caches hand back decoded maps; round-trip through JSON
	data, err := json.Marshal(cached)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached run: %w", err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode cached run: %w", err)
	}
	return &report, nil
}

// normalize runs normalization and the optional enrichment overlay
func (s *CatalogService) normalize(ctx context.Context, records []domain.RawRecord) ([]domain.NormalizedProduct, domain.BatchSummary) {
	products, rejected := s.normalizer.NormalizeAll(records)
	summary := domain.BatchSummary{
		RecordsIngested:   len(records),
		RecordsNormalized: len(products),
		RecordsRejected:   rejected,
	}

	metrics.RecordsIngestedTotal.Add(float64(len(records)))
	metrics.RecordsRejectedTotal.Add(float64(rejected))
	for i := range products {
		metrics.RecordNormalized(string(products[i].Retailer))
	}

	summary.EnrichmentApplied, summary.EnrichmentFailures = s.enrich(ctx, products)
	return products, summary
}

// enrich overlays enrichment results in place. A failed or low-confidence
// lookup leaves the product unchanged.
func (s *CatalogService) enrich(ctx context.Context, products []domain.NormalizedProduct) (applied, failures int) {
	if s.enricher == nil {
		return 0, 0
	}

	for i := range products {
		if ctx.Err() != nil {
			// Remaining products stay un-enriched
			failures += len(products) - i
			break
		}

		result, err := s.enricher.Enrich(ctx, &products[i])
		if err != nil {
			failures++
			metrics.RecordEnrichment("failure")
			s.logger.Warn().Err(err).Str("product_id", products[i].ProductID).Msg("enrichment failed")
			continue
		}

		enriched, err := ApplyEnrichment(products[i], result, s.config.EnrichmentMinConfidence)
		if err != nil {
			if errors.Is(err, domain.ErrLowConfidence) {
				metrics.RecordEnrichment("low_confidence")
				s.logger.Debug().Err(err).Str("product_id", products[i].ProductID).Msg("enrichment ignored")
				continue
			}
			failures++
			metrics.RecordEnrichment("failure")
			continue
		}

		products[i] = enriched
		applied++
		metrics.RecordEnrichment("applied")
	}
	return applied, failures
}

func cacheLookupError(err error) error {
	if errors.Is(err, domain.ErrCacheMiss) {
		return domain.ErrRunNotFound
	}
	return fmt.Errorf("failed to read run cache: %w", err)
}
