package resultcache

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain/query"
)

// --- Mocks ---

type mockStore struct {
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

// --- Tests ---

func TestCache_PutGet(t *testing.T) {
	s := newMockStore()
	c := New(s, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	canonical := []byte("t=acme|c=laptops|pg=1/20")
	page := query.Page{TotalCount: 7, Page: 1, PageSize: 20}
	c.Put(ctx, "acme", canonical, &page)

	got, ok := c.Get(ctx, "acme", canonical)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.TotalCount != 7 {
		t.Errorf("expected cached total 7, got %d", got.TotalCount)
	}
	for _, ttl := range s.ttls {
		if ttl != time.Minute {
			t.Errorf("expected TTL on cache entry, got %v", ttl)
		}
	}
}

func TestCache_MissOnEmptyStore(t *testing.T) {
	c := New(newMockStore(), time.Minute, nil, zap.NewNop())
	if _, ok := c.Get(context.Background(), "acme", []byte("anything")); ok {
		t.Error("expected miss on empty store")
	}
}

func TestCache_KeyStability(t *testing.T) {
	s := newMockStore()
	c := New(s, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	canonical := []byte("t=acme|c=|pg=1/20")
	c.Put(ctx, "acme", canonical, &query.Page{TotalCount: 1})
	c.Put(ctx, "acme", append([]byte(nil), canonical...), &query.Page{TotalCount: 2})

	if len(s.values) != 1 {
		t.Errorf("identical canonical bytes must map to one key, got %d entries", len(s.values))
	}
	got, ok := c.Get(ctx, "acme", canonical)
	if !ok || got.TotalCount != 2 {
		t.Errorf("expected last write to win, got %+v ok=%v", got, ok)
	}
}

func TestCache_DistinctRequestsDistinctKeys(t *testing.T) {
	s := newMockStore()
	c := New(s, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	c.Put(ctx, "acme", []byte("t=acme|pg=1/20"), &query.Page{TotalCount: 1})
	c.Put(ctx, "acme", []byte("t=acme|pg=2/20"), &query.Page{TotalCount: 1})

	if len(s.values) != 2 {
		t.Errorf("different canonical forms must not collide, got %d entries", len(s.values))
	}
}

func TestCache_UndecodableEntryIsMiss(t *testing.T) {
	s := newMockStore()
	c := New(s, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	canonical := []byte("t=acme|pg=1/20")
	c.Put(ctx, "acme", canonical, &query.Page{TotalCount: 1})
	for key := range s.values {
		s.values[key] = []byte("{rot")
	}

	if _, ok := c.Get(ctx, "acme", canonical); ok {
		t.Error("undecodable entry must read as a miss")
	}
}

func TestCache_InvalidateTenant(t *testing.T) {
	s := newMockStore()
	c := New(s, time.Minute, nil, zap.NewNop())
	ctx := context.Background()

	aCanon := []byte("t=acme|pg=1/20")
	c.Put(ctx, "acme", aCanon, &query.Page{TotalCount: 1})
	bCanon := []byte("t=globex|pg=1/20")
	c.Put(ctx, "globex", bCanon, &query.Page{TotalCount: 1})

	if err := c.InvalidateTenant(ctx, "acme"); err != nil {
		t.Fatalf("InvalidateTenant: %v", err)
	}

	if _, ok := c.Get(ctx, "acme", aCanon); ok {
		t.Error("expected acme entries dropped")
	}
	if _, ok := c.Get(ctx, "globex", bCanon); !ok {
		t.Error("other tenants must be untouched")
	}
}
