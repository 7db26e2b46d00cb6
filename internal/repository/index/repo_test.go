package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
	"github.com/kailas-cloud/facetdex/internal/domain/catalog"
)

// --- Mocks ---

type mockStore struct {
	json map[string][]byte
	sets map[string]map[string]bool
}

func newMockStore() *mockStore {
	return &mockStore{
		json: make(map[string][]byte),
		sets: make(map[string]map[string]bool),
	}
}

func (m *mockStore) JSONSet(_ context.Context, key, _ string, data []byte) error {
	m.json[key] = data
	return nil
}

func (m *mockStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	data, ok := m.json[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *mockStore) JSONGetMulti(_ context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		out[i] = m.json[key]
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.json, key)
	return nil
}

func (m *mockStore) SAdd(_ context.Context, key string, members ...string) error {
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]bool)
	}
	for _, member := range members {
		m.sets[key][member] = true
	}
	return nil
}

func (m *mockStore) SRem(_ context.Context, key string, members ...string) error {
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *mockStore) SMembers(_ context.Context, key string) ([]string, error) {
	var out []string
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

// --- Helpers ---

func makeDoc(t *testing.T, productID string) catalog.Document {
	t.Helper()
	conn, err := attribute.NewMultiSelect([]string{"wifi", "bluetooth"})
	if err != nil {
		t.Fatalf("NewMultiSelect: %v", err)
	}
	doc, err := catalog.New(
		productID, "acme", catalog.StatusActive,
		"Gaming Laptop", "gaming-laptop",
		"c23", "1/5/23", "Laptops",
		"b1", "Lenovo", "lenovo",
		999, 1299, "EUR",
		true, 12,
		map[string]attribute.Value{"connectivity": conn},
		"gaming laptop lenovo",
		time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 10, 0, 1, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return doc
}

// --- Tests ---

func TestRepo_PutGetRoundTrip(t *testing.T) {
	repo := New(newMockStore(), zap.NewNop())
	ctx := context.Background()

	doc := makeDoc(t, "p1")
	if err := repo.Put(ctx, &doc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(ctx, "acme", "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got.Name() != doc.Name() || got.MinPrice() != doc.MinPrice() || got.TotalStock() != doc.TotalStock() {
		t.Errorf("round trip changed scalar fields: %+v", got)
	}
	if !got.SourceUpdatedAt().Equal(doc.SourceUpdatedAt()) {
		t.Errorf("round trip changed source timestamp: %v != %v", got.SourceUpdatedAt(), doc.SourceUpdatedAt())
	}
	want := doc.Attributes()["connectivity"]
	if v, ok := got.Attributes()["connectivity"]; !ok || !v.Equal(want) {
		t.Errorf("round trip changed attribute value: %+v", got.Attributes())
	}
}

func TestRepo_GetMissing(t *testing.T) {
	repo := New(newMockStore(), zap.NewNop())
	if _, err := repo.Get(context.Background(), "acme", "nope"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestRepo_GetCorrupted(t *testing.T) {
	s := newMockStore()
	s.json[docKey("acme", "p1")] = []byte("{broken")
	repo := New(s, zap.NewNop())

	if _, err := repo.Get(context.Background(), "acme", "p1"); !errors.Is(err, domain.ErrCorruptedDocument) {
		t.Errorf("expected ErrCorruptedDocument, got %v", err)
	}
}

func TestRepo_Delete(t *testing.T) {
	s := newMockStore()
	repo := New(s, zap.NewNop())
	ctx := context.Background()

	doc := makeDoc(t, "p1")
	if err := repo.Put(ctx, &doc); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Delete(ctx, "acme", "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := repo.Get(ctx, "acme", "p1"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected document gone, got %v", err)
	}
	docs, err := repo.ScanTenant(ctx, "acme")
	if err != nil {
		t.Fatalf("ScanTenant: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected empty scan after delete, got %d docs", len(docs))
	}
}

func TestRepo_ScanTenantSkipsCorrupted(t *testing.T) {
	s := newMockStore()
	repo := New(s, zap.NewNop())
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		doc := makeDoc(t, id)
		if err := repo.Put(ctx, &doc); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}
	// One member's payload rots on disk.
	s.json[docKey("acme", "p2")] = []byte("{broken")

	docs, err := repo.ScanTenant(ctx, "acme")
	if err != nil {
		t.Fatalf("ScanTenant: %v", err)
	}
	if len(docs) != 1 || docs[0].ProductID() != "p1" {
		t.Errorf("expected the healthy document only, got %d docs", len(docs))
	}
}

func TestRepo_ScanTenantPage(t *testing.T) {
	repo := New(newMockStore(), zap.NewNop())
	ctx := context.Background()

	for _, id := range []string{"p3", "p1", "p2", "p4"} {
		doc := makeDoc(t, id)
		if err := repo.Put(ctx, &doc); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	page, err := repo.ScanTenantPage(ctx, "acme", "", 2)
	if err != nil {
		t.Fatalf("ScanTenantPage: %v", err)
	}
	if len(page) != 2 || page[0].ProductID() != "p1" || page[1].ProductID() != "p2" {
		t.Fatalf("expected lexicographic first page [p1 p2], got %d docs", len(page))
	}

	page, err = repo.ScanTenantPage(ctx, "acme", "p2", 10)
	if err != nil {
		t.Fatalf("ScanTenantPage: %v", err)
	}
	if len(page) != 2 || page[0].ProductID() != "p3" || page[1].ProductID() != "p4" {
		t.Fatalf("expected remainder [p3 p4] after checkpoint, got %d docs", len(page))
	}
}

func TestRepo_TenantsRegistered(t *testing.T) {
	repo := New(newMockStore(), zap.NewNop())
	ctx := context.Background()

	doc := makeDoc(t, "p1")
	if err := repo.Put(ctx, &doc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	tenants, err := repo.Tenants(ctx)
	if err != nil {
		t.Fatalf("Tenants: %v", err)
	}
	if len(tenants) != 1 || tenants[0] != "acme" {
		t.Errorf("expected tenant registered on first put, got %v", tenants)
	}
}
