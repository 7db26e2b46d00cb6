package query

import (
	"context"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
	domquery "github.com/kailas-cloud/facetdex/internal/domain/query"
)

// DocumentScanner reads the full document snapshot of one tenant.
type DocumentScanner interface {
	ScanTenant(ctx context.Context, tenantID string) ([]catalog.Document, error)
}

// SchemaReader reads the tenant's declared filterable attributes.
type SchemaReader interface {
	FilterableAttributes(ctx context.Context, tenantID string) ([]attribute.Definition, error)
}

// CategoryResolver maps a category slug to its id and materialized path.
type CategoryResolver interface {
	CategoryBySlug(ctx context.Context, tenantID, slug string) (*catalog.SourceCategory, error)
}

// ResultCache memoizes computed pages. Get/Put never fail the request.
type ResultCache interface {
	Get(ctx context.Context, tenantID string, canonical []byte) (domquery.Page, bool)
	Put(ctx context.Context, tenantID string, canonical []byte, page *domquery.Page)
}
