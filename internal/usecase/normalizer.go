package usecase

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/precioscl/backend/internal/domain"
	"github.com/precioscl/backend/internal/textutil"
)

// Raw keys accepted for each identity field, in priority order
var (
	nameFields      = []string{"name", "title", "product_name", "nombre"}
	brandFields     = []string{"brand", "marca"}
	modelFields     = []string{"model", "modelo"}
	categoryFields  = []string{"category", "categoria"}
	scrapedAtFields = []string{"scraped_at", "scrapedAt"}
	attributeFields = []string{"attributes", "specs"}
)

// Normalizer turns raw records into normalized products
type Normalizer struct {
	prices    *PriceUnifier
	retailers *RetailerDetector
	newID     func() string
	logger    zerolog.Logger
}

// NewNormalizer creates a normalizer. Nil collaborators get their defaults.
func NewNormalizer(prices *PriceUnifier, retailers *RetailerDetector, logger zerolog.Logger) *Normalizer {
	if prices == nil {
		prices = NewPriceUnifier(nil)
	}
	if retailers == nil {
		retailers = NewRetailerDetector(nil)
	}
	return &Normalizer{
		prices:    prices,
		retailers: retailers,
		newID:     uuid.NewString,
		logger:    logger.With().Str("component", "normalizer").Logger(),
	}
}

// Normalize builds a NormalizedProduct from a raw record. ok is false when
// the record has no usable name.
func (n *Normalizer) Normalize(record domain.RawRecord) (domain.NormalizedProduct, bool) {
	name := firstString(record.Fields, nameFields)
	if name == "" {
		return domain.NormalizedProduct{}, false
	}

	brand := firstString(record.Fields, brandFields)
	model := firstString(record.Fields, modelFields)

	category := firstString(record.Fields, categoryFields)
	if category == "" {
		category = firstString(record.Provenance.Metadata, categoryFields)
	}

	retailer := n.retailers.Lookup(firstString(record.Fields, []string{"retailer"}))
	if !retailer.Known() {
		retailer = n.retailers.Detect(record)
	}

	scrapedAt := firstString(record.Fields, scrapedAtFields)
	if scrapedAt == "" {
		scrapedAt = firstString(record.Provenance.Metadata, scrapedAtFields)
	}

	return domain.NormalizedProduct{
		ProductID:   n.newID(),
		Fingerprint: ComputeFingerprint(retailer, brand, name, model),
		Retailer:    retailer,
		Name:        name,
		Brand:       brand,
		Model:       model,
		Category:    category,
		Prices:      n.prices.Unify(record.Fields),
		Attributes:  firstMap(record.Fields, attributeFields),
		Source: domain.SourceInfo{
			File:      record.Provenance.SourceFile,
			ScrapedAt: scrapedAt,
			URL:       firstString(record.Fields, urlFields),
			Metadata:  record.Provenance.Metadata,
		},
	}, true
}

// NormalizeAll normalizes every record in order and returns how many were rejected
func (n *Normalizer) NormalizeAll(records []domain.RawRecord) ([]domain.NormalizedProduct, int) {
	products := make([]domain.NormalizedProduct, 0, len(records))
	rejected := 0
	for _, record := range records {
		product, ok := n.Normalize(record)
		if !ok {
			rejected++
			n.logger.Debug().
				Str("file", record.Provenance.SourceFile).
				Int("index", record.Provenance.Index).
				Msg("record rejected: missing name")
			continue
		}
		products = append(products, product)
	}
	return products, rejected
}

// ApplyEnrichment overlays an enrichment result on a product and returns the
// new product. Non-empty brand and model replace the originals, attribute keys
// are folded to lowercase and merged with enrichment values taking precedence,
// and the fingerprint is recomputed. Results below minConfidence return ErrLowConfidence and the
// original product.
func ApplyEnrichment(p domain.NormalizedProduct, e *domain.Enrichment, minConfidence float64) (domain.NormalizedProduct, error) {
	if e == nil {
		return p, domain.ErrInvalidRequest
	}
	if e.Confidence < minConfidence {
		return p, fmt.Errorf("%w: %.2f < %.2f", domain.ErrLowConfidence, e.Confidence, minConfidence)
	}

	out := p
	if b := textutil.NormalizeWhitespace(e.Brand); b != "" {
		out.Brand = b
	}
	if m := textutil.NormalizeWhitespace(e.Model); m != "" {
		out.Model = m
	}
	if len(e.Attributes) > 0 {
		merged := make(map[string]any, len(p.Attributes)+len(e.Attributes))
		foldAttributeKeys(merged, p.Attributes)
		foldAttributeKeys(merged, e.Attributes)
		out.Attributes = merged
	}
	out.Fingerprint = ProductFingerprint(&out)
	return out, nil
}

// foldAttributeKeys copies src into dst under trimmed lowercase keys. Keys are
// visited in sorted order, so among keys differing only in case the last one
// in byte order wins on every call.
func foldAttributeKeys(dst, src map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(src)) {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		dst[key] = src[k]
	}
}

// firstString returns the first non-empty text value among keys, whitespace-normalized
func firstString(fields map[string]any, keys []string) string {
	for _, key := range keys {
		if s := textValue(fields[key]); s != "" {
			return s
		}
	}
	return ""
}

// firstMap returns a copy of the first object-valued entry among keys
func firstMap(fields map[string]any, keys []string) map[string]any {
	for _, key := range keys {
		if m, ok := fields[key].(map[string]any); ok && len(m) > 0 {
			return maps.Clone(m)
		}
	}
	return nil
}

func textValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return textutil.NormalizeWhitespace(v)
	case json.Number:
		return v.String()
	case float64, int, int64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// attributeValue renders an attribute value for case-insensitive comparison
func attributeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(textutil.NormalizeWhitespace(v))
	default:
		return strings.ToLower(textValue(v))
	}
}
