// Package export writes run reports to JSON or Excel files.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/precioscl/backend/internal/domain"
)

// Format is an export file format
type Format string

const (
	FormatJSON  Format = "json"
	FormatExcel Format = "excel"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatExcel, "xlsx":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrExportFormat, s)
	}
}

// Extension returns the file extension for the format
func (f Format) Extension() string {
	if f == FormatExcel {
		return ".xlsx"
	}
	return ".json"
}

// New returns the exporter for a format
func New(format Format) (domain.Exporter, error) {
	switch format {
	case FormatJSON:
		return &JSONExporter{}, nil
	case FormatExcel:
		return &ExcelExporter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrExportFormat, format)
	}
}

// DefaultPath builds <dir>/run-<id><ext>
func DefaultPath(dir string, runID string, format Format) string {
	return filepath.Join(dir, "run-"+runID+format.Extension())
}

// JSONExporter writes an indented JSON document
type JSONExporter struct{}

// jsonDocument is the exported JSON layout
type jsonDocument struct {
	ExportedAt   string                     `json:"exported_at"`
	RunID        string                     `json:"run_id"`
	Summary      domain.BatchSummary        `json:"summary"`
	Products     []domain.NormalizedProduct `json:"products"`
	Pairs        []domain.MatchPair         `json:"pairs"`
	SkippedFiles []domain.SkippedFile       `json:"skipped_files"`
}

// Export writes report to path, creating parent directories
func (e *JSONExporter) Export(report *domain.RunReport, path string) error {
	if report == nil {
		return domain.ErrInvalidRequest
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	doc := jsonDocument{
		ExportedAt:   time.Now().Format(time.RFC3339),
		RunID:        report.RunID,
		Summary:      report.Summary,
		Products:     nonNil(report.Products),
		Pairs:        nonNil(report.Pairs),
		SkippedFiles: nonNil(report.SkippedFiles),
	}
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
