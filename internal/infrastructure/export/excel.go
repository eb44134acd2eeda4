package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/precioscl/backend/internal/domain"
)

const (
	sheetSummary  = "Summary"
	sheetProducts = "Products"
	sheetMatches  = "Matches"
	sheetSkipped  = "Skipped"
)

var (
	productHeaders = []string{
		"product_id", "fingerprint", "retailer", "brand", "name", "model", "category",
		"price_current", "price_original", "price_card", "url", "source_file",
	}
	matchHeaders   = []string{"id_a", "name_a", "retailer_a", "id_b", "name_b", "retailer_b", "similarity_score", "attribute_score"}
	skippedHeaders = []string{"file", "reason"}
)

// ExcelExporter writes a workbook with summary, products, matches and skipped files
type ExcelExporter struct{}

// Export writes report to path as .xlsx
func (e *ExcelExporter) Export(report *domain.RunReport, path string) error {
	if report == nil {
		return domain.ErrInvalidRequest
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	// The default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSummary(f, report, headerStyle); err != nil {
		return err
	}

	byID := make(map[string]*domain.NormalizedProduct, len(report.Products))
	productRows := make([][]any, 0, len(report.Products))
	for i := range report.Products {
		p := &report.Products[i]
		byID[p.ProductID] = p
		productRows = append(productRows, []any{
			p.ProductID, p.Fingerprint, string(p.Retailer), p.Brand, p.Name, p.Model, p.Category,
			priceCell(p.Current), priceCell(p.Original), priceCell(p.Card), p.Source.URL, p.Source.File,
		})
	}
	if err := writeTable(f, sheetProducts, productHeaders, productRows, headerStyle); err != nil {
		return err
	}

	matchRows := make([][]any, 0, len(report.Pairs))
	for _, pair := range report.Pairs {
		a, b := byID[pair.IDA], byID[pair.IDB]
		matchRows = append(matchRows, []any{
			pair.IDA, nameOf(a), retailerOf(a),
			pair.IDB, nameOf(b), retailerOf(b),
			pair.SimilarityScore, pair.AttributeScore,
		})
	}
	if err := writeTable(f, sheetMatches, matchHeaders, matchRows, headerStyle); err != nil {
		return err
	}

	skippedRows := make([][]any, 0, len(report.SkippedFiles))
	for _, s := range report.SkippedFiles {
		skippedRows = append(skippedRows, []any{s.File, s.Reason})
	}
	if err := writeTable(f, sheetSkipped, skippedHeaders, skippedRows, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, report *domain.RunReport, headerStyle int) error {
	s := report.Summary
	rows := [][]any{
		{"run_id", report.RunID},
		{"started_at", report.StartedAt.Format("2006-01-02 15:04:05")},
		{"files_scanned", s.FilesScanned},
		{"files_skipped", s.FilesSkipped},
		{"files_empty", s.FilesEmpty},
		{"records_ingested", s.RecordsIngested},
		{"records_normalized", s.RecordsNormalized},
		{"records_rejected", s.RecordsRejected},
		{"enrichment_applied", s.EnrichmentApplied},
		{"enrichment_failures", s.EnrichmentFailures},
		{"buckets", s.Buckets},
		{"pairs_compared", s.PairsCompared},
		{"pairs_matched", s.PairsMatched},
		{"duration", s.Duration.String()},
	}
	return writeRows(f, sheetSummary, []string{"metric", "value"}, rows, headerStyle)
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	return writeRows(f, sheet, headers, rows, headerStyle)
}

func writeRows(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", header, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", r+2, sheet, err)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", last, 18)
}

func priceCell(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}

func nameOf(p *domain.NormalizedProduct) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func retailerOf(p *domain.NormalizedProduct) string {
	if p == nil {
		return ""
	}
	return string(p.Retailer)
}
