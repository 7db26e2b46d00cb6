package query

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain"
)

// Pagination limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxTextLength   = 512
)

// Request is a validated filter query. Tenant is always explicit; there is
// no ambient tenant state anywhere in the engine.
type Request struct {
	tenantID     string
	categorySlug string
	brandSlugs   []string
	text         string
	priceMin     *float64
	priceMax     *float64
	inStockOnly  bool
	attributes   map[string][]string
	sortKey      SortKey
	page         int
	pageSize     int
}

// New validates and normalizes a filter request.
// An inverted price range or unknown sort key is a validation error, not a
// silently ignored filter. Brand slugs and attribute value sets are
// deduplicated and sorted so equivalent requests canonicalize identically.
func New(
	tenantID, categorySlug string,
	brandSlugs []string,
	text string,
	priceMin, priceMax *float64,
	inStockOnly bool,
	attributes map[string][]string,
	sortKey string,
	page, pageSize int,
) (Request, error) {
	if tenantID == "" {
		return Request{}, fmt.Errorf("%w: tenant is required", domain.ErrValidation)
	}
	if len(text) > MaxTextLength {
		return Request{}, fmt.Errorf("%w: query text too long (max %d)", domain.ErrValidation, MaxTextLength)
	}
	if priceMin != nil && priceMax != nil && *priceMin > *priceMax {
		return Request{}, fmt.Errorf("%w: price min %v exceeds price max %v", domain.ErrValidation, *priceMin, *priceMax)
	}
	if priceMin != nil && *priceMin < 0 {
		return Request{}, fmt.Errorf("%w: negative price min", domain.ErrValidation)
	}

	sk, err := ParseSortKey(sortKey)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	brands := canonicalSet(brandSlugs)

	var attrs map[string][]string
	if len(attributes) > 0 {
		attrs = make(map[string][]string, len(attributes))
		for code, values := range attributes {
			if code == "" {
				return Request{}, fmt.Errorf("%w: empty attribute code", domain.ErrValidation)
			}
			vs := canonicalSet(values)
			if len(vs) == 0 {
				return Request{}, fmt.Errorf("%w: attribute %q has no accepted values", domain.ErrValidation, code)
			}
			attrs[code] = vs
		}
	}

	return Request{
		tenantID:     tenantID,
		categorySlug: categorySlug,
		brandSlugs:   brands,
		text:         strings.TrimSpace(text),
		priceMin:     priceMin,
		priceMax:     priceMax,
		inStockOnly:  inStockOnly,
		attributes:   attrs,
		sortKey:      sk,
		page:         page,
		pageSize:     pageSize,
	}, nil
}

// TenantID returns the tenant the query runs against.
func (r *Request) TenantID() string { return r.tenantID }

// CategorySlug returns the selected category slug, if any.
func (r *Request) CategorySlug() string { return r.categorySlug }

// BrandSlugs returns the accepted brand set (OR semantics).
func (r *Request) BrandSlugs() []string { return r.brandSlugs }

// Text returns the free-text query.
func (r *Request) Text() string { return r.text }

// PriceMin returns the lower price bound, nil when open.
func (r *Request) PriceMin() *float64 { return r.priceMin }

// PriceMax returns the upper price bound, nil when open.
func (r *Request) PriceMax() *float64 { return r.priceMax }

// InStockOnly reports whether out-of-stock items are excluded.
func (r *Request) InStockOnly() bool { return r.inStockOnly }

// Attributes returns the attribute filter map: AND across codes, OR within
// one code's accepted set.
func (r *Request) Attributes() map[string][]string { return r.attributes }

// AttributeFilter returns the accepted set for one code, nil if unfiltered.
func (r *Request) AttributeFilter(code string) []string {
	if r.attributes == nil {
		return nil
	}
	return r.attributes[code]
}

// Sort returns the sort key.
func (r *Request) Sort() SortKey { return r.sortKey }

// Page returns the 1-based page number.
func (r *Request) Page() int { return r.page }

// PageSize returns the page size.
func (r *Request) PageSize() int { return r.pageSize }

// Tokens returns the normalized free-text tokens (lowercased, split on
// non-alphanumeric runs). All tokens must match (AND).
func (r *Request) Tokens() []string {
	return Tokenize(r.text)
}

// WithoutAttribute returns a copy of the request with the filter on one
// attribute code removed. Used by the facet calculator's exclusion rule.
func (r *Request) WithoutAttribute(code string) Request {
	c := *r
	if len(r.attributes) > 0 {
		attrs := make(map[string][]string, len(r.attributes))
		for k, v := range r.attributes {
			if k != code {
				attrs[k] = v
			}
		}
		c.attributes = attrs
	}
	return c
}

// WithoutPrice returns a copy with the price bounds removed. Used for the
// price facet's observed min/max.
func (r *Request) WithoutPrice() Request {
	c := *r
	c.priceMin = nil
	c.priceMax = nil
	return c
}

// Canonical returns a stable byte form of the request: field order fixed,
// sets sorted, pagination and sort included. Two equivalent requests always
// produce identical bytes, which is what the result cache keys on.
func (r *Request) Canonical() []byte {
	var b strings.Builder
	b.WriteString("t=")
	b.WriteString(r.tenantID)
	b.WriteString("|c=")
	b.WriteString(r.categorySlug)
	b.WriteString("|b=")
	b.WriteString(strings.Join(r.brandSlugs, ","))
	b.WriteString("|q=")
	b.WriteString(strings.Join(r.Tokens(), ","))
	b.WriteString("|p=")
	b.WriteString(formatBound(r.priceMin))
	b.WriteString(":")
	b.WriteString(formatBound(r.priceMax))
	b.WriteString("|s=")
	b.WriteString(strconv.FormatBool(r.inStockOnly))

	codes := make([]string, 0, len(r.attributes))
	for code := range r.attributes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		b.WriteString("|a:")
		b.WriteString(code)
		b.WriteString("=")
		b.WriteString(strings.Join(r.attributes[code], ","))
	}

	b.WriteString("|o=")
	b.WriteString(string(r.sortKey))
	b.WriteString("|pg=")
	b.WriteString(strconv.Itoa(r.page))
	b.WriteString("/")
	b.WriteString(strconv.Itoa(r.pageSize))
	return []byte(b.String())
}

// Tokenize splits text into normalized search tokens.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	return canonicalSet(fields)
}

// canonicalSet sorts, deduplicates, and drops empties.
func canonicalSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func formatBound(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
