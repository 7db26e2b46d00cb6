package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/attribute"
)

func ptr(f float64) *float64 { return &f }

func makeDoc(t *testing.T, id, categoryPath string) Document {
	t.Helper()
	doc, err := New(
		id, "acme", StatusActive,
		"Gaming Laptop", "gaming-laptop",
		"cat-23", categoryPath, "Laptops",
		"brand-1", "Lenovo", "lenovo",
		999, 1299, "EUR",
		true, 12,
		nil,
		"gaming laptop lenovo",
		time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 10, 0, 1, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("New document: %v", err)
	}
	return doc
}

func TestNew_Validation(t *testing.T) {
	now := time.Now()

	if _, err := New("", "acme", StatusActive, "n", "s", "", "", "", "", "", "", 1, 2, "EUR", true, 0, nil, "", now, now); err == nil {
		t.Error("expected error for missing product ID")
	}
	if _, err := New("p1", "", StatusActive, "n", "s", "", "", "", "", "", "", 1, 2, "EUR", true, 0, nil, "", now, now); err == nil {
		t.Error("expected error for missing tenant ID")
	}
	if _, err := New("p1", "acme", Status("archived"), "n", "s", "", "", "", "", "", "", 1, 2, "EUR", true, 0, nil, "", now, now); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := New("p1", "acme", StatusActive, "n", "s", "", "", "", "", "", "", 5, 2, "EUR", true, 0, nil, "", now, now); err == nil {
		t.Error("expected error for inverted price range")
	}
	if _, err := New("p1", "acme", StatusActive, "n", "s", "", "", "", "", "", "", 1, 2, "EUR", true, -1, nil, "", now, now); err == nil {
		t.Error("expected error for negative stock")
	}
	if _, err := New("p1", "acme", StatusActive, "n", "s", "", "", "", "", "", "", 1, 2, "EUR", true, 0, nil, "", time.Time{}, now); err == nil {
		t.Error("expected error for zero source timestamp")
	}
}

func TestInCategory_PathPrefix(t *testing.T) {
	doc := makeDoc(t, "p1", "1/5/23")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"exact path", "1/5/23", true},
		{"ancestor", "1/5", true},
		{"root ancestor", "1", true},
		{"sibling with shared digit prefix", "1/55", false},
		{"unrelated", "2", false},
		{"descendant", "1/5/23/99", false},
		{"empty path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doc.InCategory("", tt.path); got != tt.want {
				t.Errorf("InCategory(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestInCategory_DirectID(t *testing.T) {
	doc := makeDoc(t, "p1", "1/5/23")
	if !doc.InCategory("cat-23", "") {
		t.Error("expected direct category id match")
	}
	if doc.InCategory("cat-99", "") {
		t.Error("expected no match for other category id")
	}
}

func TestPriceOverlaps(t *testing.T) {
	doc := makeDoc(t, "p1", "1") // prices 999..1299

	tests := []struct {
		name     string
		min, max *float64
		want     bool
	}{
		{"open both sides", nil, nil, true},
		{"band inside", ptr(1000), ptr(1100), true},
		{"band covers", ptr(500), ptr(2000), true},
		{"touches min", ptr(1299), nil, true},
		{"touches max", nil, ptr(999), true},
		{"entirely below", nil, ptr(500), false},
		{"entirely above", ptr(2000), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doc.PriceOverlaps(tt.min, tt.max); got != tt.want {
				t.Errorf("PriceOverlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainsTokens(t *testing.T) {
	doc := makeDoc(t, "p1", "1")
	if !doc.ContainsTokens([]string{"gaming", "lenovo"}) {
		t.Error("expected all-token match")
	}
	if doc.ContainsTokens([]string{"gaming", "asus"}) {
		t.Error("expected miss when one token is absent")
	}
	if !doc.ContainsTokens(nil) {
		t.Error("expected empty token list to match")
	}
}

func TestAttributeValues(t *testing.T) {
	conn, err := attribute.NewMultiSelect([]string{"wifi", "bluetooth"})
	if err != nil {
		t.Fatalf("NewMultiSelect: %v", err)
	}
	doc := Reconstruct(
		"p1", "acme", StatusActive, "n", "s", "", "1", "", "", "", "",
		1, 2, "EUR", true, 1,
		map[string]attribute.Value{"connectivity": conn},
		"", time.Now(), time.Now(),
	)

	got := doc.AttributeValues("connectivity")
	if strings.Join(got, ",") != "bluetooth,wifi" {
		t.Errorf("expected canonical members, got %v", got)
	}
	if doc.AttributeValues("color") != nil {
		t.Error("expected nil for absent attribute")
	}
}
