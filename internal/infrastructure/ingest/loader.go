// Package ingest discovers scraped JSON payload files and extracts their
// product records.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/precioscl/backend/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures a Loader
type Options struct {
	Workers          int    // concurrent file reads, minimum 1
	FallbackEncoding string // charset used for files that are not valid UTF-8
}

// Loader reads payload files from a directory.
// It implements domain.RecordLoader.
type Loader struct {
	workers  int
	fallback encoding.Encoding
	logger   zerolog.Logger
}

// fileResult is the outcome of reading one file
type fileResult struct {
	records []domain.RawRecord
	err     error
	empty   bool
}

// LookupEncoding resolves a fallback charset name. Empty and "utf-8" mean no fallback.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "none":
		return nil, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

// NewLoader creates a loader
func NewLoader(opts Options, logger zerolog.Logger) (*Loader, error) {
	fallback, err := LookupEncoding(opts.FallbackEncoding)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		workers:  workers,
		fallback: fallback,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}, nil
}

// Load resolves patterns inside dir and extracts the records of every
// matching file. Files are emitted in pattern order, then lexical order
// within a pattern; records keep their in-file order. A file that cannot be
// read or parsed is recorded in LoadResult.Skipped and does not stop the
// batch. The returned error is only set for a malformed pattern or context
// cancellation.
func (l *Loader) Load(ctx context.Context, dir string, patterns []string) (*domain.LoadResult, error) {
	files, err := resolveFiles(dir, patterns)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.loadFile(path, sourceName(dir, path))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.LoadResult{
		FilesScanned: len(files),
		Skipped:      []domain.SkippedFile{},
	}
	for i, fr := range results {
		name := sourceName(dir, files[i])
		switch {
		case fr.err != nil:
			l.logger.Warn().Str("file", name).Err(fr.err).Msg("skipping unreadable file")
			result.Skipped = append(result.Skipped, domain.SkippedFile{File: name, Reason: fr.err.Error()})
		case fr.empty:
			l.logger.Debug().Str("file", name).Msg("no product list in file")
			result.FilesEmpty++
		default:
			result.Records = append(result.Records, fr.records...)
		}
	}

	l.logger.Info().
		Int("files", result.FilesScanned).
		Int("skipped", result.FilesSkipped()).
		Int("records", len(result.Records)).
		Msg("ingestion finished")

	return result, nil
}

func (l *Loader) loadFile(path, name string) fileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileResult{err: fmt.Errorf("read: %w", err)}
	}

	data, err = l.decodeText(data)
	if err != nil {
		return fileResult{err: fmt.Errorf("decode: %w", err)}
	}

	records, err := ExtractRecords(data, name)
	if errors.Is(err, domain.ErrUnsupportedShape) {
		return fileResult{empty: true}
	}
	if err != nil {
		return fileResult{err: err}
	}
	return fileResult{records: records}
}

// decodeText strips a UTF-8 BOM and converts non-UTF-8 input with the fallback charset
func (l *Loader) decodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) || l.fallback == nil {
		return data, nil
	}
	decoded, _, err := transform.Bytes(l.fallback.NewDecoder(), data)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// resolveFiles expands patterns relative to dir, dropping directories and duplicates
func resolveFiles(dir string, patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", domain.ErrInvalidRequest, pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			info, err := os.Stat(m)
			if err == nil && info.IsDir() {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	return files, nil
}

// sourceName is the path of a file relative to the ingest directory
func sourceName(dir, path string) string {
	if rel, err := filepath.Rel(dir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
