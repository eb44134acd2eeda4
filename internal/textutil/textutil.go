// Package textutil holds the text primitives shared by normalization and
// matching: whitespace cleanup, accent stripping, price parsing and
// fingerprint hashing.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FingerprintDelimiter separates the parts hashed by Fingerprint
const FingerprintDelimiter = "|"

var (
	// Unicode spaces, NBSP and the zero-width family are all treated as whitespace.
	whitespaceRegex = regexp.MustCompile(`[\s\p{Zs}\x{0085}\x{2028}\x{2029}\x{200B}\x{200C}\x{200D}\x{2060}\x{FEFF}]+`)
	nonDigitRegex   = regexp.MustCompile(`[^0-9]`)
)

// NormalizeWhitespace collapses every run of whitespace into a single ASCII
// space and trims both ends.
func NormalizeWhitespace(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// StripAccents decomposes s, drops combining marks and recomposes it.
// Characters without a decomposition pass through unchanged.
func StripAccents(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// ParsePrice keeps only the ASCII digits of text and parses them as a base-10
// integer. Separators are not interpreted: "$1.299.990" is 1299990 and
// "$12,50" is 1250. ok is false when no digits remain or the value overflows.
func ParsePrice(text string) (value int64, ok bool) {
	digits := nonDigitRegex.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Fingerprint lowercases and accent-strips every part, drops the empty ones,
// joins the rest with FingerprintDelimiter and returns the hex SHA-256 digest.
// Part order is significant.
func Fingerprint(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.ToLower(StripAccents(NormalizeWhitespace(part)))
		if p == "" {
			continue
		}
		kept = append(kept, p)
	}
	sum := sha256.Sum256([]byte(strings.Join(kept, FingerprintDelimiter)))
	return hex.EncodeToString(sum[:])
}

// FoldKey returns s accent-stripped, upper-cased and whitespace-normalized.
// It is the comparison form used for brands and retailer names.
func FoldKey(s string) string {
	return strings.ToUpper(StripAccents(NormalizeWhitespace(s)))
}
