// Package source reads the write-side catalog snapshots published by the
// upstream catalog service. The engine never joins against these at query
// time; they are consulted only by the sync handler and the sweeper.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
)

// store is the consumer interface for write-side snapshots (ISP).
type store interface {
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo implements the write-side read contract used by sync and reindex.
type Repo struct {
	store store
}

// New creates a write-side snapshot reader.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Product returns the current write-side state of one product.
func (r *Repo) Product(ctx context.Context, tenantID, productID string) (*catalog.SourceProduct, error) {
	raw, err := r.store.JSONGet(ctx, productKey(tenantID, productID), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: product %s: %w", domain.ErrSourceUnavailable, productID, err)
	}
	return decodeProduct(raw)
}

// ProductUpdatedAt returns only the write-side timestamp, for lag detection.
func (r *Repo) ProductUpdatedAt(ctx context.Context, tenantID, productID string) (time.Time, error) {
	p, err := r.Product(ctx, tenantID, productID)
	if err != nil {
		return time.Time{}, err
	}
	return p.UpdatedAt, nil
}

// ProductIDsByBrand returns every product referencing a brand, for fan-out
// on brand mutations.
func (r *Repo) ProductIDsByBrand(ctx context.Context, tenantID, brandID string) ([]string, error) {
	ids, err := r.store.SMembers(ctx, brandProductsKey(tenantID, brandID))
	if err != nil {
		return nil, fmt.Errorf("%w: brand %s products: %w", domain.ErrSourceUnavailable, brandID, err)
	}
	return ids, nil
}

// ProductIDsByCategoryPrefix returns every product whose materialized path
// matches the prefix, for fan-out on category mutations.
func (r *Repo) ProductIDsByCategoryPrefix(ctx context.Context, tenantID, pathPrefix string) ([]string, error) {
	paths, err := r.store.HGetAll(ctx, productPathsKey(tenantID))
	if err != nil {
		return nil, fmt.Errorf("%w: product paths: %w", domain.ErrSourceUnavailable, err)
	}
	var ids []string
	for productID, path := range paths {
		if path == pathPrefix || strings.HasPrefix(path, pathPrefix+"/") {
			ids = append(ids, productID)
		}
	}
	return ids, nil
}

// CategoryBySlug resolves a category slug to its id and materialized path.
func (r *Repo) CategoryBySlug(ctx context.Context, tenantID, slug string) (*catalog.SourceCategory, error) {
	raw, err := r.store.JSONGet(ctx, categoryKey(tenantID, slug), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("%w: category %s: %w", domain.ErrSourceUnavailable, slug, err)
	}

	var dto categoryDTO
	if err := unwrapJSON(raw, &dto); err != nil {
		return nil, fmt.Errorf("decode category %s: %w", slug, err)
	}
	return &catalog.SourceCategory{ID: dto.ID, Name: dto.Name, Slug: dto.Slug, Path: dto.Path}, nil
}

// CategoryByID resolves a category id to its materialized path.
func (r *Repo) CategoryByID(ctx context.Context, tenantID, categoryID string) (*catalog.SourceCategory, error) {
	raw, err := r.store.JSONGet(ctx, categoryIDKey(tenantID, categoryID), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("%w: category id %s: %w", domain.ErrSourceUnavailable, categoryID, err)
	}

	var dto categoryDTO
	if err := unwrapJSON(raw, &dto); err != nil {
		return nil, fmt.Errorf("decode category id %s: %w", categoryID, err)
	}
	return &catalog.SourceCategory{ID: dto.ID, Name: dto.Name, Slug: dto.Slug, Path: dto.Path}, nil
}

// FilterableAttributes returns the declared attribute definitions for a
// tenant that participate in filtering or search.
func (r *Repo) FilterableAttributes(ctx context.Context, tenantID string) ([]attribute.Definition, error) {
	raw, err := r.store.JSONGet(ctx, attributesKey(tenantID), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: attributes: %w", domain.ErrSourceUnavailable, err)
	}

	var dtos []definitionDTO
	if err := unwrapJSON(raw, &dtos); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}

	defs := make([]attribute.Definition, 0, len(dtos))
	for _, d := range dtos {
		def := attribute.Reconstruct(d.Code, attribute.Type(d.Type), d.Filterable, d.Searchable, d.Unit, d.Allowed)
		if def.Indexed() {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

type productDTO struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Active         bool            `json:"active"`
	Deleted        bool            `json:"deleted"`
	TrackInventory bool            `json:"track_inventory"`
	Currency       string          `json:"currency"`
	Brand          *brandDTO       `json:"brand,omitempty"`
	Category       *categoryDTO    `json:"category,omitempty"`
	Variants       []variantDTO    `json:"variants"`
	Assignments    []assignmentDTO `json:"assignments"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type variantDTO struct {
	SKU    string  `json:"sku"`
	Price  float64 `json:"price"`
	Stock  int     `json:"stock"`
	Active bool    `json:"active"`
}

type brandDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type categoryDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Path string `json:"path"`
}

type assignmentDTO struct {
	Definition definitionDTO   `json:"definition"`
	Value      attribute.Value `json:"value"`
}

type definitionDTO struct {
	Code       string   `json:"code"`
	Type       string   `json:"type"`
	Filterable bool     `json:"filterable"`
	Searchable bool     `json:"searchable"`
	Unit       string   `json:"unit,omitempty"`
	Allowed    []string `json:"allowed,omitempty"`
}

func decodeProduct(raw []byte) (*catalog.SourceProduct, error) {
	var dto productDTO
	if err := unwrapJSON(raw, &dto); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}

	p := &catalog.SourceProduct{
		ID:             dto.ID,
		TenantID:       dto.TenantID,
		Name:           dto.Name,
		Slug:           dto.Slug,
		Active:         dto.Active,
		Deleted:        dto.Deleted,
		TrackInventory: dto.TrackInventory,
		Currency:       dto.Currency,
		UpdatedAt:      dto.UpdatedAt,
	}
	if dto.Brand != nil {
		p.Brand = &catalog.SourceBrand{ID: dto.Brand.ID, Name: dto.Brand.Name, Slug: dto.Brand.Slug}
	}
	if dto.Category != nil {
		p.Category = &catalog.SourceCategory{
			ID: dto.Category.ID, Name: dto.Category.Name,
			Slug: dto.Category.Slug, Path: dto.Category.Path,
		}
	}
	for _, v := range dto.Variants {
		p.Variants = append(p.Variants, catalog.SourceVariant(v))
	}
	for _, a := range dto.Assignments {
		p.Assignments = append(p.Assignments, catalog.SourceAssignment{
			Definition: attribute.Reconstruct(
				a.Definition.Code, attribute.Type(a.Definition.Type),
				a.Definition.Filterable, a.Definition.Searchable,
				a.Definition.Unit, a.Definition.Allowed,
			),
			Value: a.Value,
		})
	}
	return p, nil
}

// unwrapJSON decodes JSON.GET output, tolerating the `$`-path array form.
func unwrapJSON(raw []byte, v any) error {
	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err == nil && len(outer) == 1 {
		if err := json.Unmarshal(outer[0], v); err == nil {
			return nil
		}
	}
	return json.Unmarshal(raw, v)
}

func productKey(tenantID, productID string) string {
	return domain.KeyPrefix + "src:" + tenantID + ":product:" + productID
}

func brandProductsKey(tenantID, brandID string) string {
	return domain.KeyPrefix + "src:" + tenantID + ":brand:" + brandID + ":products"
}

func productPathsKey(tenantID string) string {
	return domain.KeyPrefix + "src:" + tenantID + ":paths"
}

func categoryKey(tenantID, slug string) string {
	return domain.KeyPrefix + "src:" + tenantID + ":category:" + slug
}

func categoryIDKey(tenantID, categoryID string) string {
	return domain.KeyPrefix + "src:" + tenantID + ":category_id:" + categoryID
}

func attributesKey(tenantID string) string {
	return domain.KeyPrefix + "src:" + tenantID + ":attributes"
}
