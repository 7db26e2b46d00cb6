package source

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
)

// --- Mocks ---

type mockStore struct {
	json   map[string][]byte
	sets   map[string][]string
	hashes map[string]map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{
		json:   make(map[string][]byte),
		sets:   make(map[string][]string),
		hashes: make(map[string]map[string]string),
	}
}

func (m *mockStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	data, ok := m.json[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *mockStore) SMembers(_ context.Context, key string) ([]string, error) {
	return m.sets[key], nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

// --- Tests ---

func TestProduct_DecodesSnapshot(t *testing.T) {
	s := newMockStore()
	// JSON.GET with a `$` path wraps the document in a one-element array.
	s.json[productKey("acme", "p1")] = []byte(`[{
		"id": "p1",
		"tenant_id": "acme",
		"name": "Gaming Laptop",
		"slug": "gaming-laptop",
		"active": true,
		"track_inventory": true,
		"currency": "EUR",
		"brand": {"id": "b1", "name": "Lenovo", "slug": "lenovo"},
		"category": {"id": "c23", "name": "Laptops", "slug": "laptops", "path": "1/5/23"},
		"variants": [
			{"sku": "v1", "price": 1299, "stock": 3, "active": true},
			{"sku": "v2", "price": 999, "stock": 0, "active": true}
		],
		"assignments": [
			{
				"definition": {"code": "color", "type": "select", "filterable": true},
				"value": {"t": "select", "v": "red"}
			}
		],
		"updated_at": "2024-03-01T10:00:00Z"
	}]`)
	repo := New(s)

	p, err := repo.Product(context.Background(), "acme", "p1")
	if err != nil {
		t.Fatalf("Product: %v", err)
	}
	if p.Name != "Gaming Laptop" || !p.Active || p.Deleted {
		t.Errorf("unexpected product %+v", p)
	}
	if p.Brand == nil || p.Brand.Slug != "lenovo" {
		t.Errorf("expected brand decoded, got %+v", p.Brand)
	}
	if p.Category == nil || p.Category.Path != "1/5/23" {
		t.Errorf("expected category decoded, got %+v", p.Category)
	}
	if len(p.Variants) != 2 || p.Variants[0].Price != 1299 {
		t.Errorf("expected variants decoded, got %+v", p.Variants)
	}
	if len(p.Assignments) != 1 || p.Assignments[0].Definition.Code() != "color" {
		t.Fatalf("expected assignment decoded, got %+v", p.Assignments)
	}
	if got := p.Assignments[0].Value.Strings(); len(got) != 1 || got[0] != "red" {
		t.Errorf("expected typed value decoded, got %v", got)
	}
	if p.UpdatedAt.IsZero() {
		t.Error("expected write-side timestamp decoded")
	}
}

func TestProduct_NotFound(t *testing.T) {
	repo := New(newMockStore())
	if _, err := repo.Product(context.Background(), "acme", "nope"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductIDsByCategoryPrefix_Boundary(t *testing.T) {
	s := newMockStore()
	s.hashes[productPathsKey("acme")] = map[string]string{
		"p1": "1/5/23",
		"p2": "1/5",
		"p3": "1/55",
		"p4": "2",
	}
	repo := New(s)

	ids, err := repo.ProductIDsByCategoryPrefix(context.Background(), "acme", "1/5")
	if err != nil {
		t.Fatalf("ProductIDsByCategoryPrefix: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p2" {
		t.Errorf("prefix must respect segment boundaries, got %v", ids)
	}
}

func TestCategoryBySlug(t *testing.T) {
	s := newMockStore()
	s.json[categoryKey("acme", "laptops")] = []byte(`{"id": "c23", "name": "Laptops", "slug": "laptops", "path": "1/5/23"}`)
	repo := New(s)

	cat, err := repo.CategoryBySlug(context.Background(), "acme", "laptops")
	if err != nil {
		t.Fatalf("CategoryBySlug: %v", err)
	}
	if cat.ID != "c23" || cat.Path != "1/5/23" {
		t.Errorf("unexpected category %+v", cat)
	}

	if _, err := repo.CategoryBySlug(context.Background(), "acme", "nope"); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestFilterableAttributes(t *testing.T) {
	s := newMockStore()
	s.json[attributesKey("acme")] = []byte(`[
		{"code": "color", "type": "select", "filterable": true},
		{"code": "material", "type": "text", "searchable": true},
		{"code": "internal_note", "type": "text"}
	]`)
	repo := New(s)

	defs, err := repo.FilterableAttributes(context.Background(), "acme")
	if err != nil {
		t.Fatalf("FilterableAttributes: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected indexed definitions only, got %d", len(defs))
	}
	for _, d := range defs {
		if d.Code() == "internal_note" {
			t.Error("unindexed definition must be dropped")
		}
	}
}

func TestFilterableAttributes_MissingKey(t *testing.T) {
	repo := New(newMockStore())
	defs, err := repo.FilterableAttributes(context.Background(), "acme")
	if err != nil {
		t.Fatalf("FilterableAttributes: %v", err)
	}
	if defs != nil {
		t.Errorf("expected nil for tenant without declared attributes, got %v", defs)
	}
}
