package usecase

import (
	"github.com/precioscl/backend/internal/domain"
	"github.com/precioscl/backend/internal/textutil"
)

// ComputeFingerprint hashes (retailer, brand, name, model) in that order.
// Empty fields are omitted rather than replaced by a placeholder, so partial
// metadata does not fragment identity.
func ComputeFingerprint(retailer domain.Retailer, brand, name, model string) string {
	return textutil.Fingerprint(string(retailer), brand, name, model)
}

// ProductFingerprint recomputes the fingerprint of a product from its fields
func ProductFingerprint(p *domain.NormalizedProduct) string {
	return ComputeFingerprint(p.Retailer, p.Brand, p.Name, p.Model)
}
