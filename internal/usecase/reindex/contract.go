package reindex

import (
	"context"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
)

// DocumentPager iterates index documents in checkpointable pages.
type DocumentPager interface {
	ScanTenantPage(ctx context.Context, tenantID, afterProductID string, limit int) ([]catalog.Document, error)
	Tenants(ctx context.Context) ([]string, error)
}

// SourceReader exposes the write-side timestamp for lag detection.
type SourceReader interface {
	ProductUpdatedAt(ctx context.Context, tenantID, productID string) (time.Time, error)
}

// Syncer repairs one product's document from the live write-side state.
type Syncer interface {
	Resync(ctx context.Context, tenantID, productID string) (bool, error)
}

// Maintenance persists sweep checkpoints, stale flags, job records, and the
// admin attribute counts.
type Maintenance interface {
	StaleProducts(ctx context.Context, tenantID string) ([]string, error)
	Checkpoint(ctx context.Context, tenantID string) (string, error)
	SaveCheckpoint(ctx context.Context, tenantID, productID string) error
	ClearCheckpoint(ctx context.Context, tenantID string) error
	SaveJob(ctx context.Context, tenantID, jobID string, data []byte) error
	GetJob(ctx context.Context, tenantID, jobID string) ([]byte, error)
	PutAttributeCounts(ctx context.Context, tenantID, code string, counts map[string]int) error
}
