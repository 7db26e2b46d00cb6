package index

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
)

// docDTO is the persisted JSON shape of a filter index document.
type docDTO struct {
	ProductID    string `json:"product_id"`
	TenantID     string `json:"tenant_id"`
	Status       string `json:"status"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	CategoryID   string `json:"category_id,omitempty"`
	CategoryPath string `json:"category_path,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	BrandID      string `json:"brand_id,omitempty"`
	BrandName    string `json:"brand_name,omitempty"`
	BrandSlug    string `json:"brand_slug,omitempty"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	Currency     string  `json:"currency,omitempty"`
	InStock      bool    `json:"in_stock"`
	TotalStock   int     `json:"total_stock"`

	// Attributes stays opaque at the storage level: each value carries its
	// own type tag, so new attribute types never require a schema change.
	Attributes map[string]attribute.Value `json:"attributes,omitempty"`

	SearchText      string    `json:"search_text,omitempty"`
	SourceUpdatedAt time.Time `json:"source_updated_at"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
}

func encodeDoc(d *catalog.Document) ([]byte, error) {
	dto := docDTO{
		ProductID:    d.ProductID(),
		TenantID:     d.TenantID(),
		Status:       string(d.DocStatus()),
		Name:         d.Name(),
		Slug:         d.Slug(),
		CategoryID:   d.CategoryID(),
		CategoryPath: d.CategoryPath(),
		CategoryName: d.CategoryName(),
		BrandID:      d.BrandID(),
		BrandName:    d.BrandName(),
		BrandSlug:    d.BrandSlug(),
		MinPrice:     d.MinPrice(),
		MaxPrice:     d.MaxPrice(),
		Currency:     d.Currency(),
		InStock:      d.InStock(),
		TotalStock:   d.TotalStock(),
		Attributes:   d.Attributes(),
		SearchText:   d.SearchText(),

		SourceUpdatedAt: d.SourceUpdatedAt(),
		LastSyncedAt:    d.LastSyncedAt(),
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", d.ProductID(), err)
	}
	return data, nil
}

func decodeDoc(data []byte) (catalog.Document, error) {
	var dto docDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return catalog.Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	if dto.ProductID == "" || dto.TenantID == "" {
		return catalog.Document{}, fmt.Errorf("document missing identity fields")
	}
	return catalog.Reconstruct(
		dto.ProductID, dto.TenantID, catalog.Status(dto.Status),
		dto.Name, dto.Slug,
		dto.CategoryID, dto.CategoryPath, dto.CategoryName,
		dto.BrandID, dto.BrandName, dto.BrandSlug,
		dto.MinPrice, dto.MaxPrice, dto.Currency,
		dto.InStock, dto.TotalStock,
		dto.Attributes, dto.SearchText,
		dto.SourceUpdatedAt, dto.LastSyncedAt,
	), nil
}
