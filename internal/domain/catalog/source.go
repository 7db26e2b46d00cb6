package catalog

import (
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
)

// Write-side snapshot types. These mirror what the sync handler reads from
// the catalog service; they are inputs to this core, not owned by it, and
// carry no behavior beyond being read.

// SourceProduct is the normalized write-side view of one product at a point
// in time.
type SourceProduct struct {
	ID             string
	TenantID       string
	Name           string
	Slug           string
	Active         bool
	Deleted        bool
	TrackInventory bool
	Currency       string
	Brand          *SourceBrand
	Category       *SourceCategory
	Variants       []SourceVariant
	Assignments    []SourceAssignment
	UpdatedAt      time.Time
}

// SourceVariant is one sellable variant of a product.
type SourceVariant struct {
	SKU    string
	Price  float64
	Stock  int
	Active bool
}

// SourceBrand is the flattened brand reference copied into documents.
type SourceBrand struct {
	ID   string
	Name string
	Slug string
}

// SourceCategory is the flattened category reference; Path is the
// materialized ancestor chain, e.g. "1/5/23".
type SourceCategory struct {
	ID   string
	Name string
	Slug string
	Path string
}

// SourceAssignment pairs a declared attribute with the product's current
// typed value.
type SourceAssignment struct {
	Definition attribute.Definition
	Value      attribute.Value
}
