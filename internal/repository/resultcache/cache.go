package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/query"
)

var cacheKeyPrefix = domain.KeyPrefix + "cache:"

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, key string) error
}

// Cache memoizes computed result pages keyed by tenant plus the xxhash of
// the canonicalized request. Never authoritative: a miss always falls back
// to a live computation, and a write race resolves last-write-wins since
// both values are equally valid within the TTL.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a result cache with the given TTL.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Get returns the cached page for a canonicalized request, if present.
func (c *Cache) Get(ctx context.Context, tenantID string, canonical []byte) (query.Page, bool) {
	data, err := c.store.Get(ctx, cacheKey(tenantID, canonical))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("result cache read failed", zap.String("tenant", tenantID), zap.Error(err))
		}
		c.incCache("miss")
		return query.Page{}, false
	}

	var page query.Page
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("tenant", tenantID), zap.Error(err))
		c.incCache("miss")
		return query.Page{}, false
	}

	c.incCache("hit")
	return page, true
}

// Put stores a computed page. Callers fire and forget; a failed write only
// costs a future recomputation.
func (c *Cache) Put(ctx context.Context, tenantID string, canonical []byte, page *query.Page) {
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("result cache encode failed", zap.String("tenant", tenantID), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, cacheKey(tenantID, canonical), data, c.ttl); err != nil {
		c.logger.Warn("result cache write failed", zap.String("tenant", tenantID), zap.Error(err))
	}
}

// InvalidateTenant drops every cached page for a tenant. Coarse on purpose:
// correctness never depends on the cache, so over-invalidation is cheap.
func (c *Cache) InvalidateTenant(ctx context.Context, tenantID string) error {
	keys, err := c.store.Scan(ctx, cacheKeyPrefix+tenantID+":*")
	if err != nil {
		return fmt.Errorf("scan cache keys %s: %w", tenantID, err)
	}
	for _, key := range keys {
		if err := c.store.Del(ctx, key); err != nil {
			return fmt.Errorf("del cache key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(tenantID string, canonical []byte) string {
	return cacheKeyPrefix + tenantID + ":" + strconv.FormatUint(xxhash.Sum64(canonical), 16)
}
