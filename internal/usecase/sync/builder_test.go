package sync

import (
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
)

func makeDefinition(t *testing.T, code string, typ attribute.Type, filterable, searchable bool) attribute.Definition {
	t.Helper()
	def, err := attribute.NewDefinition(code, typ, filterable, searchable, "", nil)
	if err != nil {
		t.Fatalf("NewDefinition(%s): %v", code, err)
	}
	return def
}

func makeSourceProduct(t *testing.T) *catalog.SourceProduct {
	t.Helper()
	color, err := attribute.NewText(attribute.TypeSelect, "red")
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	material, err := attribute.NewText(attribute.TypeText, "aluminium")
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	internal, err := attribute.NewText(attribute.TypeText, "warehouse-only")
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}

	return &catalog.SourceProduct{
		ID:             "p1",
		TenantID:       "acme",
		Name:           "Gaming Laptop",
		Slug:           "gaming-laptop",
		Active:         true,
		TrackInventory: true,
		Currency:       "EUR",
		Brand:          &catalog.SourceBrand{ID: "b1", Name: "Lenovo", Slug: "lenovo"},
		Category:       &catalog.SourceCategory{ID: "c23", Name: "Laptops", Slug: "laptops", Path: "1/5/23"},
		Variants: []catalog.SourceVariant{
			{SKU: "v1", Price: 1299, Stock: 3, Active: true},
			{SKU: "v2", Price: 999, Stock: 0, Active: true},
			{SKU: "v3", Price: 499, Stock: 50, Active: false},
		},
		Assignments: []catalog.SourceAssignment{
			{Definition: makeDefinition(t, "color", attribute.TypeSelect, true, false), Value: color},
			{Definition: makeDefinition(t, "material", attribute.TypeText, false, true), Value: material},
			{Definition: makeDefinition(t, "internal_note", attribute.TypeText, false, false), Value: internal},
		},
		UpdatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuildDocument_AggregatesActiveVariantsOnly(t *testing.T) {
	p := makeSourceProduct(t)
	doc, err := BuildDocument(p, time.Now())
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	if doc.MinPrice() != 999 || doc.MaxPrice() != 1299 {
		t.Errorf("expected price interval [999,1299], got [%v,%v]", doc.MinPrice(), doc.MaxPrice())
	}
	if doc.TotalStock() != 3 {
		t.Errorf("expected stock 3 (inactive variant excluded), got %d", doc.TotalStock())
	}
	if !doc.InStock() {
		t.Error("expected in stock with positive total")
	}
}

func TestBuildDocument_UntrackedInventoryAlwaysInStock(t *testing.T) {
	p := makeSourceProduct(t)
	p.TrackInventory = false
	p.Variants = []catalog.SourceVariant{{SKU: "v1", Price: 10, Stock: 0, Active: true}}

	doc, err := BuildDocument(p, time.Now())
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if !doc.InStock() {
		t.Error("untracked inventory must report in stock at zero count")
	}
}

func TestBuildDocument_AttributeProjection(t *testing.T) {
	p := makeSourceProduct(t)
	doc, err := BuildDocument(p, time.Now())
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	if _, ok := doc.Attributes()["color"]; !ok {
		t.Error("filterable attribute missing from document")
	}
	if _, ok := doc.Attributes()["material"]; ok {
		t.Error("searchable-only attribute must not be filterable")
	}
	if _, ok := doc.Attributes()["internal_note"]; ok {
		t.Error("unindexed attribute must not appear in document")
	}
}

func TestBuildDocument_SearchText(t *testing.T) {
	p := makeSourceProduct(t)
	doc, err := BuildDocument(p, time.Now())
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	for _, tok := range []string{"gaming", "laptop", "lenovo", "laptops", "aluminium"} {
		if !strings.Contains(doc.SearchText(), tok) {
			t.Errorf("search text missing token %q: %q", tok, doc.SearchText())
		}
	}
	if strings.Contains(doc.SearchText(), "warehouse") {
		t.Errorf("unindexed attribute leaked into search text: %q", doc.SearchText())
	}
}

func TestBuildDocument_Deterministic(t *testing.T) {
	p := makeSourceProduct(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	a, err := BuildDocument(p, now)
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	b, err := BuildDocument(p, now)
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	if a.SearchText() != b.SearchText() || a.MinPrice() != b.MinPrice() || !a.SourceUpdatedAt().Equal(b.SourceUpdatedAt()) {
		t.Error("rebuilding from the same snapshot must produce the same document")
	}
}

func TestBuildDocument_DisabledProduct(t *testing.T) {
	p := makeSourceProduct(t)
	p.Active = false

	doc, err := BuildDocument(p, time.Now())
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if doc.DocStatus() != catalog.StatusDisabled {
		t.Errorf("expected disabled status, got %q", doc.DocStatus())
	}
}
