package domain

import (
	"encoding/json"
	"time"
)

// Retailer identifies the store a listing was scraped from. The zero value
// means the retailer could not be determined and is serialized as null.
type Retailer string

// RetailerUnknown is returned when no detection rule matched.
const RetailerUnknown Retailer = ""

// Known reports whether the retailer was determined.
func (r Retailer) Known() bool {
	return r != RetailerUnknown
}

// MarshalJSON encodes an unknown retailer as null.
func (r Retailer) MarshalJSON() ([]byte, error) {
	if r == RetailerUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts a string or null.
func (r *Retailer) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RetailerUnknown
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Retailer(s)
	return nil
}

// Provenance describes where a raw record came from
type Provenance struct {
	SourceFile string         `json:"source_file"`
	Index      int            `json:"index"` // position inside the source file
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RawRecord is a scraped product entry as found in the input payload.
// Fields is never mutated once the record has been tagged with provenance.
type RawRecord struct {
	Fields     map[string]any `json:"fields"`
	Provenance Provenance     `json:"provenance"`
}

// Prices holds the reconciled price fields in CLP (no decimals).
// Any field may be nil when no candidate was found.
type Prices struct {
	Current  *int64 `json:"price_current"`
	Original *int64 `json:"price_original"`
	Card     *int64 `json:"price_card"`
}

// SourceInfo is the provenance carried by a normalized product
type SourceInfo struct {
	File      string         `json:"file"`
	ScrapedAt string         `json:"scraped_at,omitempty"`
	URL       string         `json:"url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NormalizedProduct is the canonical, cross-retailer comparable product.
// Values are treated as immutable once built; overlays produce a new value.
type NormalizedProduct struct {
	ProductID   string   `json:"product_id"`
	Fingerprint string   `json:"fingerprint"`
	Retailer    Retailer `json:"retailer"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	Category    string   `json:"category"`
	Prices
	Attributes map[string]any `json:"attributes,omitempty"`
	Source     SourceInfo     `json:"source"`
}

// MatchPair links two products from different retailers that are believed
// to be the same physical item. IDA always refers to the product that came
// first in the matcher input.
type MatchPair struct {
	IDA             string  `json:"id_a"`
	IDB             string  `json:"id_b"`
	SimilarityScore int     `json:"similarity_score"` // token-set similarity 0-100
	AttributeScore  float64 `json:"attribute_score"`  // 0-1
}

// SkippedFile records an input file that could not be read or parsed
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// LoadResult is the output of one ingestion pass
type LoadResult struct {
	Records      []RawRecord   `json:"-"`
	FilesScanned int           `json:"files_scanned"`
	FilesEmpty   int           `json:"files_empty"` // parsed but no supported shape
	Skipped      []SkippedFile `json:"skipped_files"`
}

// FilesSkipped returns the number of files that failed to load
func (r *LoadResult) FilesSkipped() int {
	return len(r.Skipped)
}

// BatchSummary aggregates the statistics of one processing run
type BatchSummary struct {
	FilesScanned       int           `json:"files_scanned"`
	FilesSkipped       int           `json:"files_skipped"`
	FilesEmpty         int           `json:"files_empty"`
	RecordsIngested    int           `json:"records_ingested"`
	RecordsNormalized  int           `json:"records_normalized"`
	RecordsRejected    int           `json:"records_rejected"`
	EnrichmentApplied  int           `json:"enrichment_applied"`
	EnrichmentFailures int           `json:"enrichment_failures"`
	Buckets            int           `json:"buckets"`
	PairsCompared      int           `json:"pairs_compared"`
	PairsMatched       int           `json:"pairs_matched"`
	Duration           time.Duration `json:"duration_ns"`
}

// RunReport is everything produced by one batch run
type RunReport struct {
	RunID        string              `json:"run_id"`
	StartedAt    time.Time           `json:"started_at"`
	Summary      BatchSummary        `json:"summary"`
	Products     []NormalizedProduct `json:"products"`
	Pairs        []MatchPair         `json:"pairs"`
	SkippedFiles []SkippedFile       `json:"skipped_files"`
}
