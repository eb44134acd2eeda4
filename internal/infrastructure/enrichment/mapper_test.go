package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapToEnrichment(t *testing.T) {
	t.Run("normalizes keys and drops empty values", func(t *testing.T) {
		e := mapToEnrichment(&enrichResponse{
			Brand: "  Samsung ",
			Attributes: map[string]any{
				" Color ":  " Negro ",
				"capacity": 256.0,
				"empty":    "   ",
				"nil":      nil,
			},
			Confidence: 0.7,
		})

		assert.Equal(t, "Samsung", e.Brand)
		assert.Equal(t, map[string]any{"color": "Negro", "capacity": 256.0}, e.Attributes)
		assert.Equal(t, 0.7, e.Confidence)
	})

	t.Run("case-only duplicate keys resolve the same way", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			e := mapToEnrichment(&enrichResponse{
				Attributes: map[string]any{"Color": "Rojo", "color": "Negro"},
			})
			assert.Equal(t, map[string]any{"color": "Negro"}, e.Attributes)
		}
	})

	t.Run("clamps confidence", func(t *testing.T) {
		assert.Equal(t, 1.0, mapToEnrichment(&enrichResponse{Confidence: 1.5}).Confidence)
		assert.Equal(t, 0.0, mapToEnrichment(&enrichResponse{Confidence: -2}).Confidence)
	})

	t.Run("no attributes stays nil", func(t *testing.T) {
		assert.Nil(t, mapToEnrichment(&enrichResponse{}).Attributes)
	})
}
