package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/precioscl/backend/internal/domain"
)

func product(id string, retailer domain.Retailer, category, brand, name string, attrs map[string]any) domain.NormalizedProduct {
	return domain.NormalizedProduct{
		ProductID:  id,
		Retailer:   retailer,
		Category:   category,
		Brand:      brand,
		Name:       name,
		Attributes: attrs,
	}
}

func TestNewMatchingService(t *testing.T) {
	t.Run("keeps provided thresholds", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{MinTokenSimilarity: 70, MinAttributeScore: 0.5, HighSimilarityOverride: 90}, zerolog.Nop())
		if svc.minTokenSimilarity != 70 || svc.minAttributeScore != 0.5 || svc.highSimilarityOverride != 90 {
			t.Errorf("thresholds = %d/%v/%d, want 70/0.5/90", svc.minTokenSimilarity, svc.minAttributeScore, svc.highSimilarityOverride)
		}
	})

	t.Run("out of range values fall back to defaults", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{MinTokenSimilarity: 150, MinAttributeScore: -1, HighSimilarityOverride: 0}, zerolog.Nop())
		if svc.minTokenSimilarity != DefaultMinTokenSimilarity {
			t.Errorf("minTokenSimilarity = %d, want %d", svc.minTokenSimilarity, DefaultMinTokenSimilarity)
		}
		if svc.minAttributeScore != DefaultMinAttributeScore {
			t.Errorf("minAttributeScore = %v, want %v", svc.minAttributeScore, DefaultMinAttributeScore)
		}
		if svc.highSimilarityOverride != DefaultHighSimilarityOverride {
			t.Errorf("highSimilarityOverride = %d, want %d", svc.highSimilarityOverride, DefaultHighSimilarityOverride)
		}
	})

	t.Run("default config", func(t *testing.T) {
		cfg := DefaultMatchConfig()
		if cfg.MinTokenSimilarity != 85 || cfg.MinAttributeScore != 0.6 || cfg.HighSimilarityOverride != 95 {
			t.Errorf("DefaultMatchConfig() = %+v", cfg)
		}
	})
}

func TestWithThresholds(t *testing.T) {
	base := NewMatchingService(DefaultMatchConfig(), zerolog.Nop())
	clone := base.WithThresholds(60, 0.2)

	if clone.minTokenSimilarity != 60 || clone.minAttributeScore != 0.2 {
		t.Errorf("clone thresholds = %d/%v, want 60/0.2", clone.minTokenSimilarity, clone.minAttributeScore)
	}
	if base.minTokenSimilarity != 85 || base.minAttributeScore != 0.6 {
		t.Errorf("base service was modified: %d/%v", base.minTokenSimilarity, base.minAttributeScore)
	}

	ignored := base.WithThresholds(-5, 2)
	if ignored.minTokenSimilarity != 85 || ignored.minAttributeScore != 0.6 {
		t.Errorf("invalid thresholds should be ignored, got %d/%v", ignored.minTokenSimilarity, ignored.minAttributeScore)
	}
}

func TestFindMatches(t *testing.T) {
	svc := NewMatchingService(DefaultMatchConfig(), zerolog.Nop())
	ctx := context.Background()

	t.Run("similarity in [85,95) without attributes is not a match", func(t *testing.T) {
		products := []domain.NormalizedProduct{
			product("a", "falabella", "smartphones", "Apple", "iPhone 15 Pro Max 256GB", nil),
			product("b", "ripley", "smartphones", "APPLE", "iPhone 15 Pro Max 256 GB Titanium", nil),
		}
		result, err := svc.FindMatches(ctx, products)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Pairs) != 0 {
			t.Errorf("pairs = %v, want none", result.Pairs)
		}
		if result.PairsCompared != 1 {
			t.Errorf("PairsCompared = %d, want 1", result.PairsCompared)
		}
	})

	t.Run("similarity 85 with agreeing attributes is a match", func(t *testing.T) {
		products := []domain.NormalizedProduct{
			product("a", "falabella", "smartphones", "Apple", "iPhone 15 Pro Max 256GB", map[string]any{"storage": "256GB"}),
			product("b", "ripley", "smartphones", "Apple", "iPhone 15 Pro Max 256 GB Titanium", map[string]any{"Storage": "256gb"}),
		}
		result, err := svc.FindMatches(ctx, products)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Pairs) != 1 {
			t.Fatalf("pairs = %v, want 1", result.Pairs)
		}
		pair := result.Pairs[0]
		if pair.IDA != "a" || pair.IDB != "b" {
			t.Errorf("pair ids = %s/%s, want a/b", pair.IDA, pair.IDB)
		}
		if pair.SimilarityScore != 85 {
			t.Errorf("SimilarityScore = %d, want 85", pair.SimilarityScore)
		}
		if pair.AttributeScore != 1 {
			t.Errorf("AttributeScore = %v, want 1", pair.AttributeScore)
		}
	})

	t.Run("disagreeing attributes reject a mid similarity pair", func(t *testing.T) {
		products := []domain.NormalizedProduct{
			product("a", "falabella", "smartphones", "Apple", "iPhone 15 Pro Max 256GB", map[string]any{"color": "black"}),
			product("b", "ripley", "smartphones", "Apple", "iPhone 15 Pro Max 256 GB Titanium", map[string]any{"color": "white"}),
		}
		result, _ := svc.FindMatches(ctx, products)
		if len(result.Pairs) != 0 {
			t.Errorf("pairs = %v, want none", result.Pairs)
		}
	})

	t.Run("near identical names match without attributes", func(t *testing.T) {
		products := []domain.NormalizedProduct{
			product("a", "falabella", "smartphones", "Samsung", "Galaxy S24 256GB", nil),
			product("b", "paris", "smartphones", "Samsung", "Samsung Galaxy S24 256GB Negro", nil),
		}
		result, _ := svc.FindMatches(ctx, products)
		if len(result.Pairs) != 1 {
			t.Fatalf("pairs = %v, want 1", result.Pairs)
		}
		if result.Pairs[0].SimilarityScore != 100 {
			t.Errorf("SimilarityScore = %d, want 100", result.Pairs[0].SimilarityScore)
		}
	})

	t.Run("same retailer pairs are never compared", func(t *testing.T) {
		products := []domain.NormalizedProduct{
			product("a", "falabella", "tv", "LG", "OLED C3 55", nil),
			product("b", "falabella", "tv", "LG", "OLED C3 55", nil),
			product("c", "", "tv", "LG", "OLED C3 55", nil),
			product("d", "", "tv", "LG", "OLED C3 55", nil),
		}
		result, _ := svc.FindMatches(ctx, products)
		for _, pair := range result.Pairs {
			if (pair.IDA == "a" && pair.IDB == "b") || (pair.IDA == "c" && pair.IDB == "d") {
				t.Errorf("same retailer pair returned: %+v", pair)
			}
		}
		if len(result.Pairs) != 4 {
			t.Errorf("pairs = %d, want 4 cross-retailer pairs", len(result.Pairs))
		}
	})

	t.Run("products without name or brand are excluded", func(t *testing.T) {
		products := []domain.NormalizedProduct{
			product("a", "falabella", "tv", "", "OLED C3 55", nil),
			product("b", "ripley", "tv", "LG", "  ", nil),
			product("c", "paris", "tv", "LG", "OLED C3 55", nil),
		}
		result, _ := svc.FindMatches(ctx, products)
		if result.Excluded != 2 {
			t.Errorf("Excluded = %d, want 2", result.Excluded)
		}
		if len(result.Pairs) != 0 {
			t.Errorf("pairs = %v, want none", result.Pairs)
		}
	})

	t.Run("different categories are never compared", func(t *testing.T) {
		products := []domain.NormalizedProduct{
			product("a", "falabella", "tv", "LG", "OLED C3 55", nil),
			product("b", "ripley", "monitores", "LG", "OLED C3 55", nil),
		}
		result, _ := svc.FindMatches(ctx, products)
		if result.Buckets != 2 || result.PairsCompared != 0 {
			t.Errorf("buckets/compared = %d/%d, want 2/0", result.Buckets, result.PairsCompared)
		}
	})

	t.Run("brand key ignores case and accents", func(t *testing.T) {
		products := []domain.NormalizedProduct{
			product("a", "falabella", "audio", "Sony", "WH-1000XM5", nil),
			product("b", "ripley", "audio", " SÓNY ", "WH-1000XM5", nil),
		}
		result, _ := svc.FindMatches(ctx, products)
		if result.Buckets != 1 || len(result.Pairs) != 1 {
			t.Errorf("buckets/pairs = %d/%d, want 1/1", result.Buckets, len(result.Pairs))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		result, err := svc.FindMatches(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Pairs == nil || len(result.Pairs) != 0 {
			t.Errorf("Pairs = %v, want empty non-nil slice", result.Pairs)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		products := []domain.NormalizedProduct{
			product("a", "falabella", "tv", "LG", "OLED C3 55", nil),
		}
		_, err := svc.FindMatches(cancelled, products)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestTokenSetSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want int
	}{
		{"identical", []string{"galaxy", "s24"}, []string{"galaxy", "s24"}, 100},
		{"order insensitive", []string{"pro", "max", "iphone"}, []string{"iphone", "pro", "max"}, 100},
		{"duplicate insensitive", []string{"pro", "pro", "max"}, []string{"max", "pro"}, 100},
		{"subset scores full", []string{"galaxy", "s24"}, []string{"galaxy", "s24", "negro"}, 100},
		{"disjoint", []string{"abc"}, []string{"xyz"}, 0},
		{"empty side", nil, []string{"abc"}, 0},
		{
			"marketing suffix",
			tokenize("iPhone 15 Pro Max 256GB"),
			tokenize("iPhone 15 Pro Max 256 GB Titanium"),
			85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenSetSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("TokenSetSimilarity(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := TokenSetSimilarity(tt.b, tt.a); got != tt.want {
				t.Errorf("TokenSetSimilarity is not symmetric for %v, %v: %d", tt.a, tt.b, got)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		name, product, brand, want string
	}{
		{"removes brand", "Samsung Galaxy S24", "Samsung", "galaxy s24"},
		{"brand anywhere", "Galaxy S24 de SAMSUNG", "samsung", "galaxy s24 de"},
		{"keeps name when only brand", "Samsung", "Samsung", "samsung"},
		{"does not clip longer words", "Samsonite Bolso", "Sam", "samsonite bolso"},
		{"multi-word brand", "Bolso La Polar Negro", "La Polar", "bolso negro"},
		{"accents and whitespace", "  Cámara   Canon EOS ", "canon", "camara eos"},
		{"no brand", "OLED C3", "", "oled c3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BaseName(tt.product, tt.brand); got != tt.want {
				t.Errorf("BaseName(%q, %q) = %q, want %q", tt.product, tt.brand, got, tt.want)
			}
		})
	}
}

func TestAttributeScore(t *testing.T) {
	a := foldAttributes(map[string]any{"Color": "Negro", "storage": "256GB", "ram": ""})
	b := foldAttributes(map[string]any{"color": "negro", "Storage": "128GB", "screen": "6.1"})

	if got := attributeScore(a, b); got != 0.5 {
		t.Errorf("attributeScore = %v, want 0.5", got)
	}
	if got := attributeScore(a, nil); got != 0 {
		t.Errorf("attributeScore with no shared keys = %v, want 0", got)
	}
}

func TestFoldAttributes_CaseOnlyDuplicates(t *testing.T) {
	attrs := map[string]any{"Color": "Rojo", "color": "Negro", " STORAGE ": "256GB"}

	for i := 0; i < 100; i++ {
		got := foldAttributes(attrs)
		if len(got) != 2 || got["color"] != "negro" || got["storage"] != "256gb" {
			t.Fatalf("foldAttributes() = %v on call %d, want color=negro storage=256gb", got, i)
		}
	}

	other := foldAttributes(map[string]any{"color": "negro"})
	for i := 0; i < 100; i++ {
		if score := attributeScore(foldAttributes(attrs), other); score != 1 {
			t.Fatalf("attributeScore = %v on call %d, want 1", score, i)
		}
	}
}
