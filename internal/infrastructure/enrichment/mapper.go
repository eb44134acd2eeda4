package enrichment

import (
	"maps"
	"slices"
	"strings"

	"github.com/precioscl/backend/internal/domain"
)

// enrichResponse is the wire format returned by the enrichment service
type enrichResponse struct {
	Brand      string         `json:"brand"`
	Model      string         `json:"model"`
	Attributes map[string]any `json:"attributes"`
	Confidence float64        `json:"confidence"`
}

// mapToEnrichment converts a service response to the domain model.
// Attribute keys are lowercased, null or blank values dropped and the
// confidence clamped to [0, 1].
func mapToEnrichment(resp *enrichResponse) *domain.Enrichment {
	e := &domain.Enrichment{
		Brand:      strings.TrimSpace(resp.Brand),
		Model:      strings.TrimSpace(resp.Model),
		Confidence: clamp01(resp.Confidence),
	}

	if len(resp.Attributes) > 0 {
		e.Attributes = make(map[string]any, len(resp.Attributes))
		// Sorted so case-only duplicate keys resolve the same way every time
		for _, k := range slices.Sorted(maps.Keys(resp.Attributes)) {
			v := resp.Attributes[k]
			key := strings.ToLower(strings.TrimSpace(k))
			if key == "" || v == nil {
				continue
			}
			if s, ok := v.(string); ok {
				if strings.TrimSpace(s) == "" {
					continue
				}
				v = strings.TrimSpace(s)
			}
			e.Attributes[key] = v
		}
	}

	return e
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
