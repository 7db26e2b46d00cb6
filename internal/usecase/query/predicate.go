package query

import (
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
	domquery "github.com/kailas-cloud/facetdex/internal/domain/query"
)

// predicate is one compiled filter request: built once, then applied to every
// document in the tenant snapshot. Conditions compose with AND; the brand set
// and each attribute's accepted set are OR within themselves.
type predicate struct {
	categoryID   string
	categoryPath string
	brandSlugs   map[string]bool
	tokens       []string
	priceMin     *float64
	priceMax     *float64
	inStockOnly  bool
	attrs        map[string]map[string]bool
}

// compile builds a predicate from a validated request. cat is the resolved
// category, nil when the request has no category filter.
func compile(r *domquery.Request, cat *catalog.SourceCategory) predicate {
	p := predicate{
		tokens:      r.Tokens(),
		priceMin:    r.PriceMin(),
		priceMax:    r.PriceMax(),
		inStockOnly: r.InStockOnly(),
	}
	if cat != nil {
		p.categoryID = cat.ID
		p.categoryPath = cat.Path
	}
	if slugs := r.BrandSlugs(); len(slugs) > 0 {
		p.brandSlugs = make(map[string]bool, len(slugs))
		for _, s := range slugs {
			p.brandSlugs[s] = true
		}
	}
	if filters := r.Attributes(); len(filters) > 0 {
		p.attrs = make(map[string]map[string]bool, len(filters))
		for code, values := range filters {
			accepted := make(map[string]bool, len(values))
			for _, v := range values {
				accepted[v] = true
			}
			p.attrs[code] = accepted
		}
	}
	return p
}

// matches reports whether one document satisfies every condition. Disabled
// documents never match; they stay indexed only so a re-enable is a pure
// status flip away.
func (p *predicate) matches(d *catalog.Document) bool {
	if d.DocStatus() != catalog.StatusActive {
		return false
	}
	if p.categoryID != "" || p.categoryPath != "" {
		if !d.InCategory(p.categoryID, p.categoryPath) {
			return false
		}
	}
	if len(p.brandSlugs) > 0 && !p.brandSlugs[d.BrandSlug()] {
		return false
	}
	if !d.PriceOverlaps(p.priceMin, p.priceMax) {
		return false
	}
	if p.inStockOnly && !d.InStock() {
		return false
	}
	if len(p.tokens) > 0 && !d.ContainsTokens(p.tokens) {
		return false
	}
	for code, accepted := range p.attrs {
		v, ok := d.Attributes()[code]
		if !ok || !v.MatchesAny(accepted) {
			return false
		}
	}
	return true
}
