package event

import (
	"fmt"
	"time"
)

// Kind identifies which write-side entity a notification is about.
type Kind string

// Notification kinds.
const (
	KindItem       Kind = "item"
	KindAssignment Kind = "assignment"
	KindBrand      Kind = "brand"
	KindCategory   Kind = "category"
)

// Notification is one mutation event consumed from the queue. Delivery is
// at-least-once and unordered; convergence relies entirely on
// SourceUpdatedAt comparison at upsert time.
type Notification struct {
	Kind            Kind      `json:"kind"`
	TenantID        string    `json:"tenant_id"`
	ProductID       string    `json:"product_id,omitempty"`
	AttributeCode   string    `json:"attribute_code,omitempty"`
	BrandID         string    `json:"brand_id,omitempty"`
	CategoryID      string    `json:"category_id,omitempty"`
	SourceUpdatedAt time.Time `json:"source_updated_at"`
}

// Validate checks that the notification carries the fields its kind needs.
func (n Notification) Validate() error {
	if n.TenantID == "" {
		return fmt.Errorf("notification missing tenant")
	}
	if n.SourceUpdatedAt.IsZero() {
		return fmt.Errorf("notification missing source timestamp")
	}
	switch n.Kind {
	case KindItem, KindAssignment:
		if n.ProductID == "" {
			return fmt.Errorf("%s notification missing product", n.Kind)
		}
	case KindBrand:
		if n.BrandID == "" {
			return fmt.Errorf("brand notification missing brand")
		}
	case KindCategory:
		if n.CategoryID == "" {
			return fmt.Errorf("category notification missing category")
		}
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	return nil
}
