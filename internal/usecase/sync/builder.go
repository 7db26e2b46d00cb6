package sync

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
	"github.com/kailas-cloud/facetdex/internal/domain/query"
)

// BuildDocument projects a write-side product snapshot into a filter index
// document. The projection is a pure function of the snapshot: rebuilding
// from the same snapshot always yields the same document.
func BuildDocument(p *catalog.SourceProduct, now time.Time) (catalog.Document, error) {
	status := catalog.StatusDisabled
	if p.Active {
		status = catalog.StatusActive
	}

	minPrice, maxPrice, totalStock := aggregateVariants(p.Variants)

	// Untracked inventory means always sellable regardless of stock counts.
	inStock := totalStock > 0 || !p.TrackInventory

	var (
		categoryID, categoryPath, categoryName string
		brandID, brandName, brandSlug          string
	)
	if p.Category != nil {
		categoryID, categoryPath, categoryName = p.Category.ID, p.Category.Path, p.Category.Name
	}
	if p.Brand != nil {
		brandID, brandName, brandSlug = p.Brand.ID, p.Brand.Name, p.Brand.Slug
	}

	attrs := make(map[string]attribute.Value)
	var searchable []string
	for _, a := range p.Assignments {
		if a.Value.IsZero() || !a.Definition.Indexed() {
			continue
		}
		if a.Definition.Filterable() {
			attrs[a.Definition.Code()] = a.Value
		}
		if a.Definition.Searchable() {
			searchable = append(searchable, a.Value.Strings()...)
		}
	}

	doc, err := catalog.New(
		p.ID, p.TenantID, status,
		p.Name, p.Slug,
		categoryID, categoryPath, categoryName,
		brandID, brandName, brandSlug,
		minPrice, maxPrice, p.Currency,
		inStock, totalStock,
		attrs,
		buildSearchText(p.Name, brandName, categoryName, searchable),
		p.UpdatedAt, now,
	)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("build document for product %s: %w", p.ID, err)
	}
	return doc, nil
}

// aggregateVariants computes the price interval and stock sum over active
// variants only.
func aggregateVariants(variants []catalog.SourceVariant) (minPrice, maxPrice float64, totalStock int) {
	first := true
	for _, v := range variants {
		if !v.Active {
			continue
		}
		if first {
			minPrice, maxPrice = v.Price, v.Price
			first = false
		} else {
			if v.Price < minPrice {
				minPrice = v.Price
			}
			if v.Price > maxPrice {
				maxPrice = v.Price
			}
		}
		totalStock += v.Stock
	}
	return minPrice, maxPrice, totalStock
}

// buildSearchText produces the normalized token blob matched by free text
// queries: product name, brand, category, and searchable attribute values,
// lowercased, deduplicated, space-joined.
func buildSearchText(name, brandName, categoryName string, extra []string) string {
	seen := make(map[string]bool)
	var tokens []string
	add := func(text string) {
		for _, tok := range query.Tokenize(text) {
			if !seen[tok] {
				seen[tok] = true
				tokens = append(tokens, tok)
			}
		}
	}
	add(name)
	add(brandName)
	add(categoryName)
	for _, s := range extra {
		add(s)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
