package query

import (
	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
)

// Item is the minimal result projection of one matching document.
type Item struct {
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	BrandName  string  `json:"brand_name,omitempty"`
	BrandSlug  string  `json:"brand_slug,omitempty"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
	Currency   string  `json:"currency,omitempty"`
	InStock    bool    `json:"in_stock"`
	TotalStock int     `json:"total_stock"`
}

// ItemFromDocument projects a document into the result shape.
func ItemFromDocument(d *catalog.Document) Item {
	return Item{
		ProductID:  d.ProductID(),
		Name:       d.Name(),
		Slug:       d.Slug(),
		BrandName:  d.BrandName(),
		BrandSlug:  d.BrandSlug(),
		MinPrice:   d.MinPrice(),
		MaxPrice:   d.MaxPrice(),
		Currency:   d.Currency(),
		InStock:    d.InStock(),
		TotalStock: d.TotalStock(),
	}
}

// FacetValue is one bucket of a facet: a distinct value with its item count
// under the facet-exclusion rule. Selected values are kept even at zero so
// the user can deselect them.
type FacetValue struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}

// Facet aggregates buckets for one filterable attribute.
type Facet struct {
	Code   string         `json:"code"`
	Type   attribute.Type `json:"type"`
	Unit   string         `json:"unit,omitempty"`
	Values []FacetValue   `json:"values"`
}

// PriceStats reports the observed price bounds among results filtered by
// everything except the price filter itself; drives range-slider bounds.
type PriceStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AppliedFilters echoes the request filters back to the caller.
type AppliedFilters struct {
	CategorySlug string              `json:"category_slug,omitempty"`
	BrandSlugs   []string            `json:"brand_slugs,omitempty"`
	Text         string              `json:"text,omitempty"`
	PriceMin     *float64            `json:"price_min,omitempty"`
	PriceMax     *float64            `json:"price_max,omitempty"`
	InStockOnly  bool                `json:"in_stock_only,omitempty"`
	Attributes   map[string][]string `json:"attributes,omitempty"`
	Sort         SortKey             `json:"sort"`
}

// AppliedFrom builds the echo from a validated request.
func AppliedFrom(r *Request) AppliedFilters {
	return AppliedFilters{
		CategorySlug: r.CategorySlug(),
		BrandSlugs:   r.BrandSlugs(),
		Text:         r.Text(),
		PriceMin:     r.PriceMin(),
		PriceMax:     r.PriceMax(),
		InStockOnly:  r.InStockOnly(),
		Attributes:   r.Attributes(),
		Sort:         r.Sort(),
	}
}

// Page is the complete filter query response: one page of items, the total
// match count, facets, and the applied-filter echo. FacetsDegraded is set
// when the facet calculator ran out of budget and returned partial facets.
type Page struct {
	Items          []Item         `json:"items"`
	TotalCount     int            `json:"total_count"`
	Page           int            `json:"page"`
	PageSize       int            `json:"page_size"`
	Facets         []Facet        `json:"facets"`
	PriceStats     *PriceStats    `json:"price_stats,omitempty"`
	Applied        AppliedFilters `json:"applied_filters"`
	FacetsDegraded bool           `json:"facets_degraded,omitempty"`
}
