package usecase

import (
	"net/url"
	"strings"

	"github.com/precioscl/backend/internal/domain"
)

// RetailerRule names a retailer and the lowercase substrings that identify it
type RetailerRule struct {
	Retailer domain.Retailer
	Patterns []string
}

// DefaultRetailers is the known retailer set, checked in order
var DefaultRetailers = []RetailerRule{
	{Retailer: "falabella", Patterns: []string{"falabella"}},
	{Retailer: "ripley", Patterns: []string{"ripley"}},
	{Retailer: "paris", Patterns: []string{"paris"}},
	{Retailer: "lider", Patterns: []string{"lider"}},
	{Retailer: "hites", Patterns: []string{"hites"}},
	{Retailer: "lapolar", Patterns: []string{"lapolar", "la-polar", "la_polar"}},
	{Retailer: "abcdin", Patterns: []string{"abcdin", "abc-din"}},
	{Retailer: "pcfactory", Patterns: []string{"pcfactory"}},
	{Retailer: "sodimac", Patterns: []string{"sodimac"}},
	{Retailer: "jumbo", Patterns: []string{"jumbo"}},
}

// urlFields are the raw keys that may hold the product link
var urlFields = []string{"link", "url", "product_url"}

// RetailerDetector infers the retailer that owns a raw record
type RetailerDetector struct {
	rules []RetailerRule
}

// NewRetailerDetector creates a detector over the given rules.
// A nil or empty rule set uses DefaultRetailers.
func NewRetailerDetector(rules []RetailerRule) *RetailerDetector {
	if len(rules) == 0 {
		rules = DefaultRetailers
	}
	return &RetailerDetector{rules: rules}
}

// Detect checks the product URL, then the source filename, then the
// `scraper` entry of the file metadata. The first hit wins; when nothing
// matches the retailer is unknown. The URL host is tried before the whole
// URL so a retailer name inside a product slug does not shadow the site.
func (d *RetailerDetector) Detect(record domain.RawRecord) domain.Retailer {
	if link := firstString(record.Fields, urlFields); link != "" {
		if r := d.Lookup(urlHost(link)); r.Known() {
			return r
		}
		if r := d.Lookup(link); r.Known() {
			return r
		}
	}

	if r := d.Lookup(record.Provenance.SourceFile); r.Known() {
		return r
	}

	if scraper, ok := record.Provenance.Metadata["scraper"].(string); ok {
		return d.Lookup(scraper)
	}

	return domain.RetailerUnknown
}

// Lookup returns the first retailer whose pattern is a substring of text
func (d *RetailerDetector) Lookup(text string) domain.Retailer {
	if text == "" {
		return domain.RetailerUnknown
	}
	lower := strings.ToLower(text)
	for _, rule := range d.rules {
		for _, p := range rule.Patterns {
			if strings.Contains(lower, p) {
				return rule.Retailer
			}
		}
	}
	return domain.RetailerUnknown
}

// urlHost returns the host of link, or "" when it has none
func urlHost(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
