package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
)

// Status is the lifecycle state of a catalog item as reflected in the index.
type Status string

// Item statuses. Only active items are ever returned by filter queries.
const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// Document is the denormalized filter index record for one product: a
// self-contained, read-optimized projection of the write-side state. One
// document per product. A document is only replaced wholesale, never
// mutated in place, so readers always see a consistent snapshot.
type Document struct {
	productID string
	tenantID  string
	status    Status
	name      string
	slug      string

	categoryID   string
	categoryPath string
	categoryName string

	brandID   string
	brandName string
	brandSlug string

	minPrice float64
	maxPrice float64
	currency string

	inStock    bool
	totalStock int

	attributes map[string]attribute.Value
	searchText string

	sourceUpdatedAt time.Time
	lastSyncedAt    time.Time
}

// New validates and creates a Document.
func New(
	productID, tenantID string,
	status Status,
	name, slug string,
	categoryID, categoryPath, categoryName string,
	brandID, brandName, brandSlug string,
	minPrice, maxPrice float64, currency string,
	inStock bool, totalStock int,
	attributes map[string]attribute.Value,
	searchText string,
	sourceUpdatedAt, lastSyncedAt time.Time,
) (Document, error) {
	if productID == "" {
		return Document{}, fmt.Errorf("product ID is required")
	}
	if tenantID == "" {
		return Document{}, fmt.Errorf("tenant ID is required")
	}
	if status != StatusActive && status != StatusDisabled {
		return Document{}, fmt.Errorf("invalid status %q for product %s", status, productID)
	}
	if minPrice > maxPrice {
		return Document{}, fmt.Errorf("min price %v exceeds max price %v for product %s", minPrice, maxPrice, productID)
	}
	if totalStock < 0 {
		return Document{}, fmt.Errorf("negative stock %d for product %s", totalStock, productID)
	}
	if sourceUpdatedAt.IsZero() {
		return Document{}, fmt.Errorf("source timestamp is required for product %s", productID)
	}

	return Document{
		productID: productID, tenantID: tenantID, status: status,
		name: name, slug: slug,
		categoryID: categoryID, categoryPath: categoryPath, categoryName: categoryName,
		brandID: brandID, brandName: brandName, brandSlug: brandSlug,
		minPrice: minPrice, maxPrice: maxPrice, currency: currency,
		inStock: inStock, totalStock: totalStock,
		attributes: cloneValues(attributes), searchText: searchText,
		sourceUpdatedAt: sourceUpdatedAt.UTC(), lastSyncedAt: lastSyncedAt.UTC(),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	productID, tenantID string,
	status Status,
	name, slug string,
	categoryID, categoryPath, categoryName string,
	brandID, brandName, brandSlug string,
	minPrice, maxPrice float64, currency string,
	inStock bool, totalStock int,
	attributes map[string]attribute.Value,
	searchText string,
	sourceUpdatedAt, lastSyncedAt time.Time,
) Document {
	return Document{
		productID: productID, tenantID: tenantID, status: status,
		name: name, slug: slug,
		categoryID: categoryID, categoryPath: categoryPath, categoryName: categoryName,
		brandID: brandID, brandName: brandName, brandSlug: brandSlug,
		minPrice: minPrice, maxPrice: maxPrice, currency: currency,
		inStock: inStock, totalStock: totalStock,
		attributes: attributes, searchText: searchText,
		sourceUpdatedAt: sourceUpdatedAt, lastSyncedAt: lastSyncedAt,
	}
}

// ProductID returns the document key.
func (d *Document) ProductID() string { return d.productID }

// TenantID returns the owning tenant.
func (d *Document) TenantID() string { return d.tenantID }

// DocStatus returns the item lifecycle status.
func (d *Document) DocStatus() Status { return d.status }

// Name returns the product name.
func (d *Document) Name() string { return d.name }

// Slug returns the product slug.
func (d *Document) Slug() string { return d.slug }

// CategoryID returns the direct category id.
func (d *Document) CategoryID() string { return d.categoryID }

// CategoryPath returns the materialized ancestor path, e.g. "1/5/23".
func (d *Document) CategoryPath() string { return d.categoryPath }

// CategoryName returns the copied category name.
func (d *Document) CategoryName() string { return d.categoryName }

// BrandID returns the copied brand id.
func (d *Document) BrandID() string { return d.brandID }

// BrandName returns the copied brand name.
func (d *Document) BrandName() string { return d.brandName }

// BrandSlug returns the copied brand slug.
func (d *Document) BrandSlug() string { return d.brandSlug }

// MinPrice returns the lowest active-variant price.
func (d *Document) MinPrice() float64 { return d.minPrice }

// MaxPrice returns the highest active-variant price.
func (d *Document) MaxPrice() float64 { return d.maxPrice }

// Currency returns the price currency.
func (d *Document) Currency() string { return d.currency }

// InStock reports whether any stock is available.
func (d *Document) InStock() bool { return d.inStock }

// TotalStock returns the summed variant stock.
func (d *Document) TotalStock() int { return d.totalStock }

// Attributes returns the typed attribute map.
func (d *Document) Attributes() map[string]attribute.Value { return d.attributes }

// SearchText returns the normalized token blob.
func (d *Document) SearchText() string { return d.searchText }

// SourceUpdatedAt returns the write-side timestamp this document reflects.
// It is the monotonic compare key for last-write-wins upserts, never the
// wall clock of the sync itself.
func (d *Document) SourceUpdatedAt() time.Time { return d.sourceUpdatedAt }

// LastSyncedAt returns when the document was last recomputed.
func (d *Document) LastSyncedAt() time.Time { return d.lastSyncedAt }

// InCategory reports whether the document sits in the category with the
// given path, directly or in any descendant (materialized-path prefix).
func (d *Document) InCategory(categoryID, path string) bool {
	if categoryID != "" && d.categoryID == categoryID {
		return true
	}
	if path == "" {
		return false
	}
	return d.categoryPath == path || strings.HasPrefix(d.categoryPath, path+"/")
}

// PriceOverlaps reports whether [minPrice,maxPrice] intersects the requested
// interval; nil bounds are open.
func (d *Document) PriceOverlaps(min, max *float64) bool {
	if min != nil && d.maxPrice < *min {
		return false
	}
	if max != nil && d.minPrice > *max {
		return false
	}
	return true
}

// ContainsTokens reports whether every token occurs in the search blob.
func (d *Document) ContainsTokens(tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(d.searchText, tok) {
			return false
		}
	}
	return true
}

// AttributeValues returns the canonical string forms of the document's value
// for the given attribute code, or nil if the attribute is absent.
func (d *Document) AttributeValues(code string) []string {
	v, ok := d.attributes[code]
	if !ok {
		return nil
	}
	return v.Strings()
}

func cloneValues(m map[string]attribute.Value) map[string]attribute.Value {
	if m == nil {
		return nil
	}
	c := make(map[string]attribute.Value, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
