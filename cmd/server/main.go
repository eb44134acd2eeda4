package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/precioscl/backend/config"
	"github.com/precioscl/backend/internal/app"
	httpDelivery "github.com/precioscl/backend/internal/delivery/http"
	"github.com/precioscl/backend/internal/infrastructure/cache"
	"github.com/precioscl/backend/internal/infrastructure/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("ingest_dir", cfg.Ingest.Dir).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("starting PreciosCL backend v1.0.0")

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache(0)
	defer memoryCache.Close()

	catalogService, err := app.NewCatalogService(cfg, memoryCache, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build catalog service")
	}

	logger.Info().
		Int("min_token_similarity", cfg.Matching.MinTokenSimilarity).
		Float64("min_attr_score", cfg.Matching.MinAttrScore).
		Int("high_similarity_override", cfg.Matching.HighSimilarityOverride).
		Bool("debug", cfg.Matching.EnableDebugLogging).
		Msg("matching configured")

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(catalogService)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if err := serve(server, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

// serve runs the server until SIGINT/SIGTERM, then drains in-flight requests
func serve(server *http.Server, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
