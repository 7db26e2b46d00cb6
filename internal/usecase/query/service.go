// Package query executes filter requests against a tenant's document
// snapshot: predicate matching, sorting, pagination, and facet calculation.
package query

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
	domquery "github.com/kailas-cloud/facetdex/internal/domain/query"
)

// DefaultFacetBudget bounds facet calculation per request; results are
// returned without facets rather than failing when the budget runs out.
const DefaultFacetBudget = 200 * time.Millisecond

// Service executes validated filter requests.
type Service struct {
	docs        DocumentScanner
	schema      SchemaReader
	cats        CategoryResolver
	cache       ResultCache
	facetBudget time.Duration
}

// New creates a query service.
func New(docs DocumentScanner, schema SchemaReader, cats CategoryResolver, cache ResultCache) *Service {
	return &Service{
		docs: docs, schema: schema, cats: cats, cache: cache,
		facetBudget: DefaultFacetBudget,
	}
}

// WithFacetBudget configures the facet calculation deadline.
func (s *Service) WithFacetBudget(d time.Duration) *Service {
	if d > 0 {
		s.facetBudget = d
	}
	return s
}

// Filter runs one filter request and returns a result page. The whole
// request evaluates against a single snapshot of the tenant's documents,
// so pagination over unchanged data is complete and duplicate-free.
func (s *Service) Filter(ctx context.Context, r domquery.Request) (domquery.Page, error) {
	filterable, err := s.filterableSchema(ctx, r.TenantID())
	if err != nil {
		return domquery.Page{}, err
	}
	for code := range r.Attributes() {
		if _, ok := filterable[code]; !ok {
			return domquery.Page{}, fmt.Errorf("%w: %q", domain.ErrUnknownAttribute, code)
		}
	}

	canonical := r.Canonical()
	if page, ok := s.cache.Get(ctx, r.TenantID(), canonical); ok {
		return page, nil
	}

	var cat *catalog.SourceCategory
	if r.CategorySlug() != "" {
		cat, err = s.cats.CategoryBySlug(ctx, r.TenantID(), r.CategorySlug())
		if err != nil {
			return domquery.Page{}, fmt.Errorf("resolve category %q: %w", r.CategorySlug(), err)
		}
	}

	docs, err := s.docs.ScanTenant(ctx, r.TenantID())
	if err != nil {
		return domquery.Page{}, fmt.Errorf("scan tenant %s: %w", r.TenantID(), err)
	}

	pred := compile(&r, cat)
	matched := make([]*catalog.Document, 0, len(docs))
	for i := range docs {
		if pred.matches(&docs[i]) {
			matched = append(matched, &docs[i])
		}
	}

	sortDocuments(matched, r.Sort())

	items := make([]domquery.Item, 0, r.PageSize())
	for _, d := range paginate(matched, r.Page(), r.PageSize()) {
		items = append(items, domquery.ItemFromDocument(d))
	}

	facets, priceStats, degraded := s.computeFacets(ctx, &r, cat, filterable, docs)

	page := domquery.Page{
		Items:          items,
		TotalCount:     len(matched),
		Page:           r.Page(),
		PageSize:       r.PageSize(),
		Facets:         facets,
		PriceStats:     priceStats,
		Applied:        domquery.AppliedFrom(&r),
		FacetsDegraded: degraded,
	}

	if !degraded {
		// Fire-and-forget: a lost write only costs the next caller a
		// recompute. Degraded pages are never cached.
		go s.cache.Put(context.WithoutCancel(ctx), r.TenantID(), canonical, &page)
	}
	return page, nil
}

// filterableSchema returns the tenant's filterable attribute definitions by
// code.
func (s *Service) filterableSchema(ctx context.Context, tenantID string) (map[string]attribute.Definition, error) {
	defs, err := s.schema.FilterableAttributes(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("read attribute schema: %w", err)
	}
	filterable := make(map[string]attribute.Definition, len(defs))
	for _, d := range defs {
		if d.Filterable() {
			filterable[d.Code()] = d
		}
	}
	return filterable, nil
}

// sortDocuments orders matches deterministically: the requested key first,
// productID as the final tiebreak so pagination never sees ties.
func sortDocuments(docs []*catalog.Document, key domquery.SortKey) {
	slices.SortFunc(docs, func(a, b *catalog.Document) int {
		if c := compareByKey(a, b, key); c != 0 {
			return c
		}
		return strings.Compare(a.ProductID(), b.ProductID())
	})
}

func compareByKey(a, b *catalog.Document, key domquery.SortKey) int {
	switch key {
	case domquery.SortPriceAsc:
		return compareFloat(a.MinPrice(), b.MinPrice())
	case domquery.SortPriceDesc:
		return compareFloat(b.MinPrice(), a.MinPrice())
	case domquery.SortName:
		return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
	default: // SortRecency
		return b.SourceUpdatedAt().Compare(a.SourceUpdatedAt())
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// paginate slices one 1-based page out of the ordered matches.
func paginate(docs []*catalog.Document, page, pageSize int) []*catalog.Document {
	start := (page - 1) * pageSize
	if start >= len(docs) {
		return nil
	}
	end := start + pageSize
	if end > len(docs) {
		end = len(docs)
	}
	return docs[start:end]
}
