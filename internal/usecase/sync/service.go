// Package sync keeps filter index documents converged with the write-side
// catalog. Notifications arrive at-least-once and unordered; convergence
// relies on source timestamps, not delivery order.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/event"
	"github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/metrics"
)

// Default retry policy for transient sync failures.
const (
	DefaultRetryMax  = 3
	DefaultRetryBase = 200 * time.Millisecond
)

// Service applies change notifications to the filter index.
type Service struct {
	src   SourceReader
	index IndexStore
	maint Maintenance
	cache CacheInvalidator

	retryMax  int
	retryBase time.Duration
	now       func() time.Time
}

// New creates a sync service.
func New(src SourceReader, index IndexStore, maint Maintenance, cache CacheInvalidator) *Service {
	return &Service{
		src: src, index: index, maint: maint, cache: cache,
		retryMax:  DefaultRetryMax,
		retryBase: DefaultRetryBase,
		now:       time.Now,
	}
}

// WithRetry configures the retry policy.
func (s *Service) WithRetry(max int, base time.Duration) *Service {
	if max >= 0 {
		s.retryMax = max
	}
	if base > 0 {
		s.retryBase = base
	}
	return s
}

// WithClock configures the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Process handles one notification with bounded retries. Transient failures
// back off exponentially; after the final attempt the notification is
// dead-lettered and any affected product flagged stale, and nil is returned
// so the consumer acknowledges it rather than looping on a poison message.
func (s *Service) Process(ctx context.Context, n event.Notification) error {
	log := logger.FromContext(ctx)

	var err error
	for attempt := 0; ; attempt++ {
		err = s.Handle(ctx, n)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// Shutdown mid-notification: leave it unacked for Recover.
			return err
		}
		if errors.Is(err, domain.ErrValidation) || attempt >= s.retryMax {
			break
		}
		metrics.SyncRetryTotal.Inc()
		log.Warn("sync attempt failed, retrying",
			zap.String("kind", string(n.Kind)),
			zap.String("tenant", n.TenantID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryBase << attempt):
		}
	}

	if dlErr := s.maint.DeadLetter(ctx, n, err.Error()); dlErr != nil {
		// Could not even record the failure; keep the message for redelivery.
		return fmt.Errorf("dead-letter notification: %w", dlErr)
	}
	if n.ProductID != "" {
		if msErr := s.maint.MarkStale(ctx, n.TenantID, n.ProductID); msErr != nil {
			log.Error("mark stale after dead-letter", zap.String("product", n.ProductID), zap.Error(msErr))
		}
	}
	metrics.SyncNotificationsTotal.WithLabelValues(string(n.Kind), "dead_lettered").Inc()
	log.Error("notification dead-lettered",
		zap.String("kind", string(n.Kind)),
		zap.String("tenant", n.TenantID),
		zap.String("product", n.ProductID),
		zap.Error(err),
	)
	return nil
}

// Handle applies one notification in a single attempt.
func (s *Service) Handle(ctx context.Context, n event.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	var (
		changed bool
		err     error
	)
	switch n.Kind {
	case event.KindItem, event.KindAssignment:
		changed, err = s.syncProduct(ctx, n.Kind, n.TenantID, n.ProductID)
	case event.KindBrand:
		changed, err = s.fanOutBrand(ctx, n)
	case event.KindCategory:
		changed, err = s.fanOutCategory(ctx, n)
	}
	if err != nil {
		return err
	}

	if changed {
		if invErr := s.cache.InvalidateTenant(ctx, n.TenantID); invErr != nil {
			// The cache has a TTL; a failed invalidation only extends
			// staleness, it never corrupts the index.
			logger.FromContext(ctx).Warn("cache invalidation failed",
				zap.String("tenant", n.TenantID), zap.Error(invErr))
		}
	}
	return nil
}

// Resync rebuilds one product's document outside the notification flow.
// Used by the sweeper to repair stale or lagging documents.
func (s *Service) Resync(ctx context.Context, tenantID, productID string) (bool, error) {
	changed, err := s.syncProduct(ctx, event.KindItem, tenantID, productID)
	if err != nil {
		return false, err
	}
	if changed {
		if invErr := s.cache.InvalidateTenant(ctx, tenantID); invErr != nil {
			logger.FromContext(ctx).Warn("cache invalidation failed",
				zap.String("tenant", tenantID), zap.Error(invErr))
		}
	}
	return changed, nil
}

// syncProduct rebuilds one document from the current write-side snapshot
// and upserts it last-write-wins on the source timestamp.
func (s *Service) syncProduct(ctx context.Context, kind event.Kind, tenantID, productID string) (bool, error) {
	p, err := s.src.Product(ctx, tenantID, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return s.removeProduct(ctx, kind, tenantID, productID)
		}
		return false, fmt.Errorf("read product %s: %w", productID, err)
	}
	if p.Deleted {
		return s.removeProduct(ctx, kind, tenantID, productID)
	}

	doc, err := BuildDocument(p, s.now())
	if err != nil {
		return false, err
	}

	existing, err := s.index.Get(ctx, tenantID, productID)
	switch {
	case err == nil:
		if existing.SourceUpdatedAt().After(doc.SourceUpdatedAt()) {
			// A newer state is already indexed; this delivery is late.
			metrics.SyncNotificationsTotal.WithLabelValues(string(kind), "stale").Inc()
			return false, nil
		}
	case errors.Is(err, domain.ErrDocumentNotFound):
		// First sighting of this product.
	case errors.Is(err, domain.ErrCorruptedDocument):
		// Unreadable document is replaced wholesale.
	default:
		return false, fmt.Errorf("read existing document %s: %w", productID, err)
	}

	if err := s.index.Put(ctx, &doc); err != nil {
		return false, fmt.Errorf("upsert document %s: %w", productID, err)
	}
	if err := s.maint.ClearStale(ctx, tenantID, productID); err != nil {
		logger.FromContext(ctx).Warn("clear stale flag", zap.String("product", productID), zap.Error(err))
	}
	metrics.SyncNotificationsTotal.WithLabelValues(string(kind), "applied").Inc()
	return true, nil
}

func (s *Service) removeProduct(ctx context.Context, kind event.Kind, tenantID, productID string) (bool, error) {
	if err := s.index.Delete(ctx, tenantID, productID); err != nil {
		return false, fmt.Errorf("delete document %s: %w", productID, err)
	}
	if err := s.maint.ClearStale(ctx, tenantID, productID); err != nil {
		logger.FromContext(ctx).Warn("clear stale flag", zap.String("product", productID), zap.Error(err))
	}
	metrics.SyncNotificationsTotal.WithLabelValues(string(kind), "deleted").Inc()
	return true, nil
}

// fanOutBrand resyncs every product referencing the mutated brand, so the
// denormalized brand fields converge.
func (s *Service) fanOutBrand(ctx context.Context, n event.Notification) (bool, error) {
	ids, err := s.src.ProductIDsByBrand(ctx, n.TenantID, n.BrandID)
	if err != nil {
		return false, fmt.Errorf("list products for brand %s: %w", n.BrandID, err)
	}
	return s.resyncAll(ctx, n.Kind, n.TenantID, ids)
}

// fanOutCategory resyncs every product under the mutated category's subtree.
func (s *Service) fanOutCategory(ctx context.Context, n event.Notification) (bool, error) {
	cat, err := s.src.CategoryByID(ctx, n.TenantID, n.CategoryID)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			// Category already gone; products under it carry their own
			// item notifications, nothing to fan out here.
			logger.FromContext(ctx).Warn("category notification for unknown category",
				zap.String("tenant", n.TenantID), zap.String("category", n.CategoryID))
			return false, nil
		}
		return false, fmt.Errorf("resolve category %s: %w", n.CategoryID, err)
	}

	ids, err := s.src.ProductIDsByCategoryPrefix(ctx, n.TenantID, cat.Path)
	if err != nil {
		return false, fmt.Errorf("list products for category %s: %w", n.CategoryID, err)
	}
	return s.resyncAll(ctx, n.Kind, n.TenantID, ids)
}

// resyncAll syncs a batch of products, continuing past per-product failures
// so one bad product does not block the rest of a fan-out; the joined error
// drives the retry of the whole notification.
func (s *Service) resyncAll(ctx context.Context, kind event.Kind, tenantID string, ids []string) (bool, error) {
	var (
		changed bool
		errs    []error
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ch, err := s.syncProduct(ctx, kind, tenantID, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		changed = changed || ch
	}
	return changed, errors.Join(errs...)
}
