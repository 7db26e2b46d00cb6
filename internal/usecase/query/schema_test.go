package query

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
)

// --- Helpers ---

func numberValue(t *testing.T, n float64) attribute.Value {
	t.Helper()
	v, err := attribute.NewNumber(attribute.TypeNumber, n)
	if err != nil {
		t.Fatalf("NewNumber(%v): %v", n, err)
	}
	return v
}

func rangeValue(t *testing.T, lo, hi float64) attribute.Value {
	t.Helper()
	v, err := attribute.NewRange(lo, hi)
	if err != nil {
		t.Fatalf("NewRange(%v, %v): %v", lo, hi, err)
	}
	return v
}

func laptopsCategory() *mockCategories {
	return &mockCategories{bySlug: map[string]*catalog.SourceCategory{
		"laptops": {ID: "c23", Name: "Laptops", Slug: "laptops", Path: "1/5/23"},
	}}
}

func findEntry(t *testing.T, entries []SchemaEntry, code string) SchemaEntry {
	t.Helper()
	for _, e := range entries {
		if e.Code == code {
			return e
		}
	}
	t.Fatalf("no schema entry for %q in %v", code, entries)
	return SchemaEntry{}
}

// --- Tests ---

func TestFacetSchema_ObservedNumberBounds(t *testing.T) {
	schema := &mockSchema{defs: []attribute.Definition{
		attribute.Reconstruct("color", attribute.TypeSelect, true, false, "", nil),
		attribute.Reconstruct("weight", attribute.TypeNumber, true, false, "kg", nil),
	}}
	docs := []catalog.Document{
		makeIndexedDoc(t, docSpec{id: "p1", name: "Laptop A", categoryPath: "1/5/23", minPrice: 10,
			attrs: map[string]attribute.Value{"weight": numberValue(t, 1.2)}}),
		makeIndexedDoc(t, docSpec{id: "p2", name: "Laptop B", categoryPath: "1/5/23", minPrice: 10,
			attrs: map[string]attribute.Value{"weight": numberValue(t, 3.5)}}),
		makeIndexedDoc(t, docSpec{id: "p3", name: "Laptop C", categoryPath: "1/5/23", minPrice: 10,
			attrs: map[string]attribute.Value{"weight": numberValue(t, 0.8)}}),
		// Outside the category: must not widen the bounds.
		makeIndexedDoc(t, docSpec{id: "p4", name: "Fridge", categoryPath: "2/9", minPrice: 10,
			attrs: map[string]attribute.Value{"weight": numberValue(t, 99)}}),
		// Disabled: excluded from the candidate set.
		makeIndexedDoc(t, docSpec{id: "p5", name: "Laptop D", categoryPath: "1/5/23", minPrice: 10,
			status: catalog.StatusDisabled,
			attrs:  map[string]attribute.Value{"weight": numberValue(t, 50)}}),
	}
	scanner := &mockScanner{docs: docs}
	svc := New(scanner, schema, laptopsCategory(), newMockResultCache())

	entries, err := svc.FacetSchema(context.Background(), "acme", "laptops")
	if err != nil {
		t.Fatalf("FacetSchema: %v", err)
	}
	if scanner.scanCount != 1 {
		t.Errorf("expected one document scan, got %d", scanner.scanCount)
	}

	weight := findEntry(t, entries, "weight")
	if weight.Observed == nil {
		t.Fatal("expected observed bounds for a number attribute")
	}
	if weight.Observed.Min != "0.8" || weight.Observed.Max != "3.5" {
		t.Errorf("expected bounds [0.8, 3.5], got [%s, %s]", weight.Observed.Min, weight.Observed.Max)
	}
	if color := findEntry(t, entries, "color"); color.Observed != nil {
		t.Errorf("select attribute must not carry bounds, got %+v", color.Observed)
	}
}

func TestFacetSchema_ObservedRangeSpansEndpoints(t *testing.T) {
	schema := &mockSchema{defs: []attribute.Definition{
		attribute.Reconstruct("screen", attribute.TypeRange, true, false, "in", nil),
	}}
	docs := []catalog.Document{
		makeIndexedDoc(t, docSpec{id: "p1", name: "Laptop A", categoryPath: "1/5/23", minPrice: 10,
			attrs: map[string]attribute.Value{"screen": rangeValue(t, 13, 15)}}),
		makeIndexedDoc(t, docSpec{id: "p2", name: "Laptop B", categoryPath: "1/5/23", minPrice: 10,
			attrs: map[string]attribute.Value{"screen": rangeValue(t, 11, 14)}}),
	}
	svc := New(&mockScanner{docs: docs}, schema, laptopsCategory(), newMockResultCache())

	entries, err := svc.FacetSchema(context.Background(), "acme", "laptops")
	if err != nil {
		t.Fatalf("FacetSchema: %v", err)
	}
	screen := findEntry(t, entries, "screen")
	if screen.Observed == nil {
		t.Fatal("expected observed bounds for a range attribute")
	}
	if screen.Observed.Min != "11" || screen.Observed.Max != "15" {
		t.Errorf("expected bounds [11, 15], got [%s, %s]", screen.Observed.Min, screen.Observed.Max)
	}
}

func TestFacetSchema_ObservedDateBounds(t *testing.T) {
	schema := &mockSchema{defs: []attribute.Definition{
		attribute.Reconstruct("released", attribute.TypeDate, true, false, "", nil),
	}}
	docs := []catalog.Document{
		makeIndexedDoc(t, docSpec{id: "p1", name: "Laptop A", categoryPath: "1/5/23", minPrice: 10,
			attrs: map[string]attribute.Value{
				"released": attribute.NewDate(time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)),
			}}),
		makeIndexedDoc(t, docSpec{id: "p2", name: "Laptop B", categoryPath: "1/5/23", minPrice: 10,
			attrs: map[string]attribute.Value{
				"released": attribute.NewDate(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
			}}),
	}
	svc := New(&mockScanner{docs: docs}, schema, laptopsCategory(), newMockResultCache())

	entries, err := svc.FacetSchema(context.Background(), "acme", "laptops")
	if err != nil {
		t.Fatalf("FacetSchema: %v", err)
	}
	released := findEntry(t, entries, "released")
	if released.Observed == nil {
		t.Fatal("expected observed bounds for a date attribute")
	}
	if released.Observed.Min != "2024-01-05" || released.Observed.Max != "2024-03-01" {
		t.Errorf("expected bounds [2024-01-05, 2024-03-01], got [%s, %s]",
			released.Observed.Min, released.Observed.Max)
	}
}

func TestFacetSchema_NoRangeLikeSkipsScan(t *testing.T) {
	scanner := &mockScanner{}
	svc := New(scanner, makeSchema(t, "color"), laptopsCategory(), newMockResultCache())

	entries, err := svc.FacetSchema(context.Background(), "acme", "laptops")
	if err != nil {
		t.Fatalf("FacetSchema: %v", err)
	}
	if scanner.scanCount != 0 {
		t.Errorf("schema without range-like attributes must not scan, got %d scans", scanner.scanCount)
	}
	if color := findEntry(t, entries, "color"); color.Observed != nil {
		t.Errorf("expected no bounds, got %+v", color.Observed)
	}
}

func TestFacetSchema_UnobservedAttributeHasNoBounds(t *testing.T) {
	schema := &mockSchema{defs: []attribute.Definition{
		attribute.Reconstruct("weight", attribute.TypeNumber, true, false, "kg", nil),
	}}
	docs := []catalog.Document{
		makeIndexedDoc(t, docSpec{id: "p1", name: "Laptop A", categoryPath: "1/5/23", minPrice: 10}),
	}
	svc := New(&mockScanner{docs: docs}, schema, laptopsCategory(), newMockResultCache())

	entries, err := svc.FacetSchema(context.Background(), "acme", "laptops")
	if err != nil {
		t.Fatalf("FacetSchema: %v", err)
	}
	if weight := findEntry(t, entries, "weight"); weight.Observed != nil {
		t.Errorf("no document carries the attribute, expected nil bounds, got %+v", weight.Observed)
	}
}
