package usecase

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/precioscl/backend/internal/domain"
	"github.com/precioscl/backend/internal/textutil"
)

// PriceRole is the meaning of a raw price field
type PriceRole int

const (
	PriceRoleCard PriceRole = iota
	PriceRoleNormal
	PriceRoleOriginal
)

// PriceField maps a raw record key to the price role it carries.
// Text fields are parsed with textutil.ParsePrice.
type PriceField struct {
	Key  string
	Role PriceRole
	Text bool
}

// DefaultPriceFields lists the known raw price keys. For every role numeric
// fields win over text fields, and earlier entries win over later ones.
// Retailer-specific keys are added here, not in the unification logic.
var DefaultPriceFields = []PriceField{
	{Key: "card_price", Role: PriceRoleCard},
	{Key: "normal_price", Role: PriceRoleNormal},
	{Key: "original_price", Role: PriceRoleOriginal},
	{Key: "card_price_text", Role: PriceRoleCard, Text: true},
	{Key: "normal_price_text", Role: PriceRoleNormal, Text: true},
	{Key: "original_price_text", Role: PriceRoleOriginal, Text: true},
	{Key: "ripley_price_text", Role: PriceRoleNormal, Text: true}, // Ripley internet price
}

var priceRoles = []PriceRole{PriceRoleCard, PriceRoleNormal, PriceRoleOriginal}

// PriceUnifier reconciles the raw price fields of a record into
// current/original/card prices.
type PriceUnifier struct {
	fields []PriceField
}

// NewPriceUnifier creates a unifier over the given field table.
// A nil or empty table uses DefaultPriceFields.
func NewPriceUnifier(fields []PriceField) *PriceUnifier {
	if len(fields) == 0 {
		fields = DefaultPriceFields
	}
	return &PriceUnifier{fields: fields}
}

// Unify resolves one candidate per role, then sets Current to the lowest
// candidate and Original to the highest. Card is the resolved card price and
// does not depend on the min/max pool. With no candidates all three are nil.
//
// The min/max rule is a heuristic: a stale original price lower than the
// current one is not corrected.
func (u *PriceUnifier) Unify(fields map[string]any) domain.Prices {
	var prices domain.Prices
	var candidates []int64

	for _, role := range priceRoles {
		value, ok := u.resolve(fields, role)
		if !ok {
			continue
		}
		candidates = append(candidates, value)
		if role == PriceRoleCard {
			prices.Card = int64Ptr(value)
		}
	}

	if len(candidates) == 0 {
		return prices
	}

	low, high := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		low = min(low, c)
		high = max(high, c)
	}
	prices.Current = int64Ptr(low)
	prices.Original = int64Ptr(high)
	return prices
}

// resolve returns the price for a role: the first numeric field present,
// otherwise the first text field that parses.
func (u *PriceUnifier) resolve(fields map[string]any, role PriceRole) (int64, bool) {
	for _, f := range u.fields {
		if f.Role != role || f.Text {
			continue
		}
		if v, ok := numericPrice(fields[f.Key]); ok {
			return v, true
		}
	}
	for _, f := range u.fields {
		if f.Role != role || !f.Text {
			continue
		}
		if s, ok := fields[f.Key].(string); ok {
			if v, ok := textutil.ParsePrice(s); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// numericPrice converts a decoded JSON value into whole currency units.
// Strings found in numeric fields are parsed like text prices.
func numericPrice(value any) (int64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return floatPrice(v)
	case float32:
		return floatPrice(float64(v))
	case int:
		return nonNegative(int64(v))
	case int64:
		return nonNegative(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return nonNegative(i)
		}
		if f, err := v.Float64(); err == nil {
			return floatPrice(f)
		}
		return 0, false
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, false
		}
		return textutil.ParsePrice(v)
	default:
		return 0, false
	}
}

func floatPrice(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(math.Round(f)), true
}

func nonNegative(i int64) (int64, bool) {
	if i < 0 {
		return 0, false
	}
	return i, true
}

func int64Ptr(v int64) *int64 {
	return &v
}
