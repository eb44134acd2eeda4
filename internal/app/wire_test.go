package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/precioscl/backend/config"
	"github.com/precioscl/backend/internal/usecase"
)

func baseConfig(dir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Ingest: config.IngestConfig{Dir: dir, Patterns: []string{"*.json"}, Workers: 2, FallbackEncoding: "windows-1252"},
		Matching: config.MatchingConfig{
			MinTokenSimilarity:     85,
			MinAttrScore:           0.6,
			HighSimilarityOverride: 95,
		},
		Enrichment: config.EnrichmentConfig{MinConfidence: 0.7},
		Cache:      config.CacheConfig{TTL: time.Hour},
	}
}

func TestNewCatalogService_RunsPipeline(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paris.json"), []byte(
		`[{"name": "Notebook IdeaPad 3", "brand": "Lenovo", "category": "notebooks"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lider.json"), []byte(
		`[{"name": "Lenovo Notebook IdeaPad 3", "brand": "LENOVO", "category": "notebooks"}]`), 0o644))

	svc, err := NewCatalogService(baseConfig(dir), nil, zerolog.Nop())
	require.NoError(t, err)

	report, err := svc.Run(context.Background(), usecase.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.FilesScanned)
	assert.Equal(t, 2, report.Summary.RecordsNormalized)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, 100, report.Pairs[0].SimilarityScore)
}

func TestNewCatalogService_WithEnrichment(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"brand":      "Lenovo",
			"attributes": map[string]any{"ram": "8GB"},
			"confidence": 0.9,
		})
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paris.json"), []byte(
		`[{"name": "Notebook IdeaPad 3", "category": "notebooks"}]`), 0o644))

	cfg := baseConfig(dir)
	cfg.Enrichment.Enabled = true
	cfg.Enrichment.BaseURL = server.URL
	cfg.Enrichment.RequestsPerSecond = 100
	cfg.Enrichment.Burst = 10

	svc, err := NewCatalogService(cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	report, err := svc.Run(context.Background(), usecase.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, report.Summary.EnrichmentApplied)
	require.Len(t, report.Products, 1)
	assert.Equal(t, "Lenovo", report.Products[0].Brand)
	assert.Equal(t, "8GB", report.Products[0].Attributes["ram"])
}

func TestNewCatalogService_BadEncoding(t *testing.T) {
	cfg := baseConfig(t.TempDir())
	cfg.Ingest.FallbackEncoding = "ebcdic"

	_, err := NewCatalogService(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}
