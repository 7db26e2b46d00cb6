package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
)

// store is the consumer interface for the filter index (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo persists filter index documents: one JSON document per product plus
// a per-tenant membership set enabling full-tenant scans without joins.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates a filter index repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// Get returns the stored document for a product.
func (r *Repo) Get(ctx context.Context, tenantID, productID string) (catalog.Document, error) {
	raw, err := r.store.JSONGet(ctx, docKey(tenantID, productID), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return catalog.Document{}, domain.ErrDocumentNotFound
		}
		return catalog.Document{}, fmt.Errorf("json.get %s: %w", docKey(tenantID, productID), err)
	}
	doc, err := decodeJSONGet(raw)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("%w: product %s: %w", domain.ErrCorruptedDocument, productID, err)
	}
	return doc, nil
}

// Put stores a document wholesale and registers it in the tenant set.
func (r *Repo) Put(ctx context.Context, doc *catalog.Document) error {
	data, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	key := docKey(doc.TenantID(), doc.ProductID())
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	if err := r.store.SAdd(ctx, membersKey(doc.TenantID()), doc.ProductID()); err != nil {
		return fmt.Errorf("register %s: %w", doc.ProductID(), err)
	}
	if err := r.store.SAdd(ctx, tenantsKey, doc.TenantID()); err != nil {
		return fmt.Errorf("register tenant %s: %w", doc.TenantID(), err)
	}
	return nil
}

// Tenants returns every tenant that has ever had a document indexed. Drives
// the periodic sweeper.
func (r *Repo) Tenants(ctx context.Context) ([]string, error) {
	tenants, err := r.store.SMembers(ctx, tenantsKey)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", tenantsKey, err)
	}
	sort.Strings(tenants)
	return tenants, nil
}

// Delete removes a document and its membership entry.
func (r *Repo) Delete(ctx context.Context, tenantID, productID string) error {
	if err := r.store.Del(ctx, docKey(tenantID, productID)); err != nil {
		return fmt.Errorf("del %s: %w", docKey(tenantID, productID), err)
	}
	if err := r.store.SRem(ctx, membersKey(tenantID), productID); err != nil {
		return fmt.Errorf("deregister %s: %w", productID, err)
	}
	return nil
}

// ScanTenant returns decoded snapshots of every document for a tenant.
// A document that fails to decode is skipped and logged; one corrupted
// record never fails queries touching the rest of the catalog.
func (r *Repo) ScanTenant(ctx context.Context, tenantID string) ([]catalog.Document, error) {
	ids, err := r.store.SMembers(ctx, membersKey(tenantID))
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", membersKey(tenantID), err)
	}
	return r.fetch(ctx, tenantID, ids)
}

// ScanTenantPage returns up to limit documents with productID strictly after
// the checkpoint, in lexicographic productID order. Used by the sweeper's
// resumable iteration.
func (r *Repo) ScanTenantPage(ctx context.Context, tenantID, afterProductID string, limit int) ([]catalog.Document, error) {
	ids, err := r.store.SMembers(ctx, membersKey(tenantID))
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", membersKey(tenantID), err)
	}
	sort.Strings(ids)

	page := make([]string, 0, limit)
	for _, id := range ids {
		if id <= afterProductID {
			continue
		}
		page = append(page, id)
		if len(page) == limit {
			break
		}
	}
	return r.fetch(ctx, tenantID, page)
}

func (r *Repo) fetch(ctx context.Context, tenantID string, ids []string) ([]catalog.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(tenantID, id)
	}

	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("json.get multi: %w", err)
	}

	docs := make([]catalog.Document, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			r.logger.Warn("skipping corrupted index document",
				zap.String("tenant", tenantID),
				zap.String("product", ids[i]),
				zap.Error(err),
			)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// decodeJSONGet unwraps the `$`-path array form of JSON.GET.
func decodeJSONGet(raw []byte) (catalog.Document, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err == nil && len(outer) > 0 {
		return decodeDoc(outer[0])
	}
	return decodeDoc(raw)
}

const tenantsKey = domain.KeyPrefix + "tenants"

func docKey(tenantID, productID string) string {
	return domain.KeyPrefix + tenantID + ":doc:" + productID
}

func membersKey(tenantID string) string {
	return domain.KeyPrefix + tenantID + ":docs"
}
