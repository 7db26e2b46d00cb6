package sync

import (
	"context"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
	"github.com/kailas-cloud/facetdex/internal/domain/event"
	"github.com/kailas-cloud/facetdex/internal/repository/queue"
)

// SourceReader reads write-side catalog snapshots.
type SourceReader interface {
	Product(ctx context.Context, tenantID, productID string) (*catalog.SourceProduct, error)
	ProductIDsByBrand(ctx context.Context, tenantID, brandID string) ([]string, error)
	ProductIDsByCategoryPrefix(ctx context.Context, tenantID, pathPrefix string) ([]string, error)
	CategoryByID(ctx context.Context, tenantID, categoryID string) (*catalog.SourceCategory, error)
}

// IndexStore reads and writes filter index documents.
type IndexStore interface {
	Get(ctx context.Context, tenantID, productID string) (catalog.Document, error)
	Put(ctx context.Context, doc *catalog.Document) error
	Delete(ctx context.Context, tenantID, productID string) error
}

// Maintenance tracks per-product sync health and failed notifications.
type Maintenance interface {
	MarkStale(ctx context.Context, tenantID, productID string) error
	ClearStale(ctx context.Context, tenantID, productID string) error
	DeadLetter(ctx context.Context, n event.Notification, cause string) error
}

// CacheInvalidator drops memoized result pages after index mutations.
type CacheInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// NotificationQueue is the at-least-once change feed the consumer drains.
type NotificationQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Message, error)
	Ack(ctx context.Context, m *queue.Message) error
	Recover(ctx context.Context) (int, error)
	Depth(ctx context.Context) (int64, error)
}

// Processor handles one notification end to end, including retry policy.
type Processor interface {
	Process(ctx context.Context, n event.Notification) error
}
