package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/precioscl/backend/config"
	"github.com/precioscl/backend/internal/app"
	"github.com/precioscl/backend/internal/domain"
	"github.com/precioscl/backend/internal/infrastructure/export"
	"github.com/precioscl/backend/internal/infrastructure/logging"
	"github.com/precioscl/backend/internal/usecase"
)

var version = "dev"

// flagBindings maps config keys to the flags that override them
var flagBindings = map[string]string{
	"ingest.dir":                    "dir",
	"ingest.patterns":               "pattern",
	"ingest.workers":                "workers",
	"ingest.fallback_encoding":      "encoding",
	"matching.min_token_similarity": "min-similarity",
	"matching.min_attr_score":       "min-attr-score",
	"matching.enable_debug_logging": "debug-matching",
	"export.dir":                    "out-dir",
	"export.format":                 "format",
	"log.level":                     "log-level",
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("catalog", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.String("dir", "", "directory holding scraper JSON files")
	flags.StringSlice("pattern", nil, "filename glob, repeatable (default *.json)")
	flags.Int("workers", 0, "concurrent file reads")
	flags.String("encoding", "", "fallback charset for non UTF-8 files")
	flags.Int("min-similarity", 0, "minimum token-set similarity (0-100)")
	flags.Float64("min-attr-score", 0, "minimum attribute agreement (0-1)")
	flags.Bool("debug-matching", false, "log every scored pair")
	flags.String("out-dir", "", "directory for the export when --out is not set")
	flags.String("format", "", "export format: json or excel")
	flags.String("log-level", "", "log level")
	out := flags.StringP("out", "o", "", "export file path")
	showVersion := flags.BoolP("version", "v", false, "print version and exit")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: catalog [flags]\n\nIngests scraped retailer files, normalizes and matches products, and exports the run.\n\nFlags:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "catalog %s\n", version)
		return 0
	}

	cfg, err := config.LoadWithFlags(flags, flagBindings)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	exporter, err := export.New(format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	service, err := app.NewCatalogService(cfg, nil, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := service.Run(ctx, usecase.RunRequest{})
	if err != nil {
		logger.Error().Err(err).Msg("catalog run failed")
		return 1
	}
	if report.Summary.FilesScanned == 0 {
		fmt.Fprintf(stderr, "Error: %v in %s matching %v\n", domain.ErrNoInputFiles, cfg.Ingest.Dir, cfg.Ingest.Patterns)
		return 1
	}

	path := *out
	if path == "" {
		path = export.DefaultPath(cfg.Export.Dir, report.RunID, format)
	}
	if err := exporter.Export(report, path); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("export failed")
		return 1
	}

	printSummary(stdout, report, path)
	return 0
}

func printSummary(w io.Writer, report *domain.RunReport, path string) {
	s := report.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", report.RunID)
	fmt.Fprintf(tw, "files scanned\t%d\n", s.FilesScanned)
	fmt.Fprintf(tw, "files skipped\t%d\n", s.FilesSkipped)
	fmt.Fprintf(tw, "files empty\t%d\n", s.FilesEmpty)
	fmt.Fprintf(tw, "records ingested\t%d\n", s.RecordsIngested)
	fmt.Fprintf(tw, "records normalized\t%d\n", s.RecordsNormalized)
	fmt.Fprintf(tw, "records rejected\t%d\n", s.RecordsRejected)
	if s.EnrichmentApplied > 0 || s.EnrichmentFailures > 0 {
		fmt.Fprintf(tw, "enrichment applied\t%d\n", s.EnrichmentApplied)
		fmt.Fprintf(tw, "enrichment failures\t%d\n", s.EnrichmentFailures)
	}
	fmt.Fprintf(tw, "buckets\t%d\n", s.Buckets)
	fmt.Fprintf(tw, "pairs compared\t%d\n", s.PairsCompared)
	fmt.Fprintf(tw, "pairs matched\t%d\n", s.PairsMatched)
	fmt.Fprintf(tw, "duration\t%s\n", s.Duration)
	fmt.Fprintf(tw, "export\t%s\n", path)
	tw.Flush()
	for _, skipped := range report.SkippedFiles {
		fmt.Fprintf(w, "skipped %s: %s\n", skipped.File, skipped.Reason)
	}
}
