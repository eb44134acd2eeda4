package usecase

import (
	"context"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/precioscl/backend/internal/domain"
	"github.com/precioscl/backend/internal/textutil"
)

// Package-level compiled regex pattern for performance
var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Matching defaults
const (
	DefaultMinTokenSimilarity     = 85
	DefaultMinAttributeScore      = 0.6
	DefaultHighSimilarityOverride = 95
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinTokenSimilarity     int     // 0-100
	MinAttributeScore      float64 // 0-1
	HighSimilarityOverride int     // similarity that accepts a pair without attribute support
	EnableDebugLogging     bool
}

// DefaultMatchConfig returns the documented default thresholds
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		MinTokenSimilarity:     DefaultMinTokenSimilarity,
		MinAttributeScore:      DefaultMinAttributeScore,
		HighSimilarityOverride: DefaultHighSimilarityOverride,
	}
}

// MatchingService links the same product across retailers
type MatchingService struct {
	minTokenSimilarity     int
	minAttributeScore      float64
	highSimilarityOverride int
	enableDebugLogging     bool
	logger                 zerolog.Logger
}

// MatchResult is the output of one FindMatches call
type MatchResult struct {
	Pairs         []domain.MatchPair
	Buckets       int
	PairsCompared int
	Excluded      int // products without name or brand
}

// NewMatchingService creates a new matching service with the given configuration.
// Out-of-range thresholds fall back to their defaults.
func NewMatchingService(config MatchConfig, logger zerolog.Logger) *MatchingService {
	minSim := config.MinTokenSimilarity
	if minSim < 0 || minSim > 100 {
		minSim = DefaultMinTokenSimilarity
	}

	minAttr := config.MinAttributeScore
	if minAttr < 0 || minAttr > 1 {
		minAttr = DefaultMinAttributeScore
	}

	override := config.HighSimilarityOverride
	if override <= 0 || override > 100 {
		override = DefaultHighSimilarityOverride
	}

	return &MatchingService{
		minTokenSimilarity:     minSim,
		minAttributeScore:      minAttr,
		highSimilarityOverride: override,
		enableDebugLogging:     config.EnableDebugLogging,
		logger:                 logger.With().Str("component", "matcher").Logger(),
	}
}

// WithThresholds returns a copy of the service using other acceptance thresholds
func (s *MatchingService) WithThresholds(minTokenSimilarity int, minAttributeScore float64) *MatchingService {
	clone := *s
	if minTokenSimilarity >= 0 && minTokenSimilarity <= 100 {
		clone.minTokenSimilarity = minTokenSimilarity
	}
	if minAttributeScore >= 0 && minAttributeScore <= 1 {
		clone.minAttributeScore = minAttributeScore
	}
	return &clone
}

// blockKey is the blocking key: category plus folded brand
type blockKey struct {
	category string
	brand    string
}

// matchCandidate caches what scoring needs per product
type matchCandidate struct {
	index      int
	tokens     []string
	attributes map[string]string
}

// FindMatches groups products by (category, brand), compares every
// cross-retailer pair inside a bucket and returns the accepted pairs.
// Buckets are visited in first-appearance order and pairs in input order.
// Products missing a name or brand are excluded from bucketing.
func (s *MatchingService) FindMatches(ctx context.Context, products []domain.NormalizedProduct) (*MatchResult, error) {
	result := &MatchResult{Pairs: []domain.MatchPair{}}

	buckets := make(map[blockKey][]matchCandidate)
	var order []blockKey

	for i := range products {
		p := &products[i]
		name := textutil.NormalizeWhitespace(p.Name)
		brand := textutil.FoldKey(p.Brand)
		if name == "" || brand == "" {
			result.Excluded++
			continue
		}

		key := blockKey{category: textutil.NormalizeWhitespace(p.Category), brand: brand}
		if _, exists := buckets[key]; !exists {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], matchCandidate{
			index:      i,
			tokens:     tokenize(BaseName(p.Name, p.Brand)),
			attributes: foldAttributes(p.Attributes),
		})
	}
	result.Buckets = len(order)

	for _, key := range order {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		members := buckets[key]
		for i := 0; i < len(members); i++ {
			a := members[i]
			pa := &products[a.index]
			for j := i + 1; j < len(members); j++ {
				b := members[j]
				pb := &products[b.index]
				if pa.Retailer == pb.Retailer {
					continue
				}
				result.PairsCompared++

				similarity := TokenSetSimilarity(a.tokens, b.tokens)
				attrScore := attributeScore(a.attributes, b.attributes)
				accepted := s.accept(similarity, attrScore)

				if s.enableDebugLogging {
					s.logger.Debug().
						Str("category", key.category).
						Str("brand", key.brand).
						Str("a", pa.Name).
						Str("b", pb.Name).
						Int("similarity", similarity).
						Float64("attribute_score", attrScore).
						Bool("accepted", accepted).
						Msg("pair scored")
				}

				if accepted {
					result.Pairs = append(result.Pairs, domain.MatchPair{
						IDA:             pa.ProductID,
						IDB:             pb.ProductID,
						SimilarityScore: similarity,
						AttributeScore:  attrScore,
					})
				}
			}
		}
	}

	return result, nil
}

// accept applies the acceptance rule: enough name similarity, and either
// enough attribute agreement or a near-identical name.
func (s *MatchingService) accept(similarity int, attrScore float64) bool {
	if similarity < s.minTokenSimilarity {
		return false
	}
	return attrScore >= s.minAttributeScore || similarity >= s.highSimilarityOverride
}

// BaseName returns the comparable form of a product name with the brand
// removed. Matching is token-aligned so a short brand never clips a longer
// word. When removing the brand would leave nothing, the full name is kept.
func BaseName(name, brand string) string {
	nameTokens := tokenize(name)
	brandTokens := tokenize(brand)
	if len(brandTokens) == 0 || len(brandTokens) > len(nameTokens) {
		return strings.Join(nameTokens, " ")
	}

	kept := make([]string, 0, len(nameTokens))
	for i := 0; i < len(nameTokens); {
		if i+len(brandTokens) <= len(nameTokens) && slices.Equal(nameTokens[i:i+len(brandTokens)], brandTokens) {
			i += len(brandTokens)
			continue
		}
		kept = append(kept, nameTokens[i])
		i++
	}

	if len(kept) == 0 {
		return strings.Join(nameTokens, " ")
	}
	return strings.Join(kept, " ")
}

// tokenize lowercases, strips accents and splits on anything that is not a
// letter or digit.
func tokenize(s string) []string {
	cleaned := strings.ToLower(textutil.StripAccents(textutil.NormalizeWhitespace(s)))
	cleaned = nonWordRegex.ReplaceAllString(cleaned, " ")
	return strings.Fields(cleaned)
}

// TokenSetSimilarity scores two token lists 0-100, ignoring token order and
// repetition. The sorted intersection is compared against each side's
// intersection-plus-remainder and the best alignment wins, so a name that
// only adds words to the other scores 100.
func TokenSetSimilarity(tokens1, tokens2 []string) int {
	set1 := uniqueSorted(tokens1)
	set2 := uniqueSorted(tokens2)
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	intersection, diff1, diff2 := splitSets(set1, set2)
	if len(intersection) > 0 && (len(diff1) == 0 || len(diff2) == 0) {
		return 100
	}

	sortedIntersection := strings.Join(intersection, " ")
	combined1 := joinNonEmpty(sortedIntersection, strings.Join(diff1, " "))
	combined2 := joinNonEmpty(sortedIntersection, strings.Join(diff2, " "))

	best := ratio(combined1, combined2)
	if sortedIntersection != "" {
		best = max(best, ratio(sortedIntersection, combined1), ratio(sortedIntersection, combined2))
	}
	return best
}

// ratio is the normalized indel similarity 2*LCS/(len1+len2) scaled to 0-100
// and rounded to the nearest integer.
func ratio(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	total := len(r1) + len(r2)
	if total == 0 {
		return 100
	}
	lcs := longestCommonSubsequence(r1, r2)
	return (200*lcs + total/2) / total
}

// longestCommonSubsequence calculates the LCS length using two rows
func longestCommonSubsequence(r1, r2 []rune) int {
	if len(r1) == 0 || len(r2) == 0 {
		return 0
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)

	for i := 1; i <= len(r1); i++ {
		for j := 1; j <= len(r2); j++ {
			if r1[i-1] == r2[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// splitSets returns the intersection and both differences of two sorted unique slices
func splitSets(set1, set2 []string) (intersection, diff1, diff2 []string) {
	i, j := 0, 0
	for i < len(set1) && j < len(set2) {
		switch {
		case set1[i] == set2[j]:
			intersection = append(intersection, set1[i])
			i++
			j++
		case set1[i] < set2[j]:
			diff1 = append(diff1, set1[i])
			i++
		default:
			diff2 = append(diff2, set2[j])
			j++
		}
	}
	diff1 = append(diff1, set1[i:]...)
	diff2 = append(diff2, set2[j:]...)
	return intersection, diff1, diff2
}

func uniqueSorted(tokens []string) []string {
	out := slices.Clone(tokens)
	slices.Sort(out)
	return slices.Compact(out)
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// foldAttributes keeps attributes with a non-empty value, keyed by lowercase
// name. Keys are visited in sorted order so case-only duplicates always
// resolve to the last one in byte order.
func foldAttributes(attributes map[string]any) map[string]string {
	if len(attributes) == 0 {
		return nil
	}
	folded := make(map[string]string, len(attributes))
	for _, k := range slices.Sorted(maps.Keys(attributes)) {
		key := strings.ToLower(strings.TrimSpace(k))
		value := attributeValue(attributes[k])
		if key == "" || value == "" {
			continue
		}
		folded[key] = value
	}
	return folded
}

// attributeScore is the fraction of shared attribute keys whose values agree.
// No shared keys scores 0.
func attributeScore(a, b map[string]string) float64 {
	shared, equal := 0, 0
	for key, va := range a {
		vb, ok := b[key]
		if !ok {
			continue
		}
		shared++
		if va == vb {
			equal++
		}
	}
	if shared == 0 {
		return 0
	}
	return float64(equal) / float64(shared)
}
