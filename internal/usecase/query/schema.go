package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
)

// SchemaEntry describes one filterable attribute for facet UI construction.
type SchemaEntry struct {
	Code     string          `json:"code"`
	Type     attribute.Type  `json:"type"`
	Unit     string          `json:"unit,omitempty"`
	Allowed  []string        `json:"allowed,omitempty"`
	Observed *ObservedBounds `json:"observed,omitempty"`
}

// ObservedBounds are the lowest and highest values a range-like attribute
// takes across the active documents under the requested category, in the
// attribute's canonical string form. A slider can seed its endpoints from
// these without a separate aggregation query.
type ObservedBounds struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// FacetSchema returns the filterable attribute schema applicable under a
// category. The category must resolve; the declared attributes are
// tenant-wide, but observed bounds are computed over the category's
// documents only.
func (s *Service) FacetSchema(ctx context.Context, tenantID, categorySlug string) ([]SchemaEntry, error) {
	cat, err := s.cats.CategoryBySlug(ctx, tenantID, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("resolve category %q: %w", categorySlug, err)
	}

	filterable, err := s.filterableSchema(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// The document walk is only paid when a range-like attribute exists.
	var docs []catalog.Document
	for _, def := range filterable {
		if def.AttrType().IsRangeLike() {
			docs, err = s.docs.ScanTenant(ctx, tenantID)
			if err != nil {
				return nil, fmt.Errorf("scan tenant %s: %w", tenantID, err)
			}
			break
		}
	}

	entries := make([]SchemaEntry, 0, len(filterable))
	for _, def := range filterable {
		entry := SchemaEntry{
			Code:    def.Code(),
			Type:    def.AttrType(),
			Unit:    def.Unit(),
			Allowed: def.Allowed(),
		}
		if def.AttrType().IsRangeLike() {
			entry.Observed = observedBounds(def, cat, docs)
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })
	return entries, nil
}

// observedBounds walks the active documents under the category and returns
// the min/max seen for one range-like attribute. Nil when no document
// carries it. Values whose stored type no longer matches the declaration
// are skipped, never reinterpreted.
func observedBounds(def attribute.Definition, cat *catalog.SourceCategory, docs []catalog.Document) *ObservedBounds {
	var (
		found      bool
		minN, maxN float64
		minT, maxT time.Time
	)
	for i := range docs {
		d := &docs[i]
		if d.DocStatus() != catalog.StatusActive {
			continue
		}
		if cat != nil && !d.InCategory(cat.ID, cat.Path) {
			continue
		}
		v, ok := d.Attributes()[def.Code()]
		if !ok || v.ValueType() != def.AttrType() {
			continue
		}
		switch def.AttrType() {
		case attribute.TypeNumber, attribute.TypeDecimal:
			n := v.Number()
			if !found || n < minN {
				minN = n
			}
			if !found || n > maxN {
				maxN = n
			}
		case attribute.TypeRange:
			lo, hi := v.Bounds()
			if !found || lo < minN {
				minN = lo
			}
			if !found || hi > maxN {
				maxN = hi
			}
		case attribute.TypeDate, attribute.TypeDatetime:
			ts := v.Time()
			if !found || ts.Before(minT) {
				minT = ts
			}
			if !found || ts.After(maxT) {
				maxT = ts
			}
		default:
			continue
		}
		found = true
	}
	if !found {
		return nil
	}

	switch def.AttrType() {
	case attribute.TypeDate:
		return &ObservedBounds{
			Min: attribute.NewDate(minT).Strings()[0],
			Max: attribute.NewDate(maxT).Strings()[0],
		}
	case attribute.TypeDatetime:
		return &ObservedBounds{
			Min: attribute.NewDatetime(minT).Strings()[0],
			Max: attribute.NewDatetime(maxT).Strings()[0],
		}
	default:
		return &ObservedBounds{
			Min: strconv.FormatFloat(minN, 'f', -1, 64),
			Max: strconv.FormatFloat(maxN, 'f', -1, 64),
		}
	}
}
