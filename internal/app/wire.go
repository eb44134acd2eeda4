// Package app wires configuration into the catalog pipeline shared by the binaries.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/precioscl/backend/config"
	"github.com/precioscl/backend/internal/domain"
	"github.com/precioscl/backend/internal/infrastructure/enrichment"
	"github.com/precioscl/backend/internal/infrastructure/ingest"
	"github.com/precioscl/backend/internal/usecase"
)

// NewCatalogService builds the ingest -> normalize -> enrich -> match
// pipeline from configuration. cache may be nil.
func NewCatalogService(cfg *config.Config, cache domain.CacheRepository, logger zerolog.Logger) (*usecase.CatalogService, error) {
	loader, err := ingest.NewLoader(ingest.Options{
		Workers:          cfg.Ingest.Workers,
		FallbackEncoding: cfg.Ingest.FallbackEncoding,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}

	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		MinTokenSimilarity:     cfg.Matching.MinTokenSimilarity,
		MinAttributeScore:      cfg.Matching.MinAttrScore,
		HighSimilarityOverride: cfg.Matching.HighSimilarityOverride,
		EnableDebugLogging:     cfg.Matching.EnableDebugLogging,
	}, logger)

	var enricher domain.Enricher
	if cfg.Enrichment.Enabled {
		client := enrichment.NewClient(enrichment.ClientConfig{
			BaseURL:           cfg.Enrichment.BaseURL,
			APIKey:            cfg.Enrichment.APIKey,
			RequestsPerSecond: cfg.Enrichment.RequestsPerSecond,
			Burst:             cfg.Enrichment.Burst,
			Timeout:           cfg.Enrichment.Timeout,
		}, logger)
		client.SetDebug(cfg.Server.Environment == "development")
		enricher = client
		logger.Info().Str("base_url", cfg.Enrichment.BaseURL).Msg("enrichment enabled")
	}

	return usecase.NewCatalogService(
		loader,
		usecase.NewNormalizer(nil, nil, logger),
		matcher,
		enricher,
		cache,
		usecase.CatalogServiceConfig{
			IngestDir:               cfg.Ingest.Dir,
			Patterns:                cfg.Ingest.Patterns,
			CacheTTL:                cfg.Cache.TTL,
			EnrichmentMinConfidence: cfg.Enrichment.MinConfidence,
		},
		logger,
	), nil
}
