package attribute

import "fmt"

// Type is the declared type of a catalog attribute.
type Type string

// Declared attribute types.
const (
	TypeText        Type = "text"
	TypeLongText    Type = "long_text"
	TypeNumber      Type = "number"
	TypeDecimal     Type = "decimal"
	TypeBoolean     Type = "boolean"
	TypeDate        Type = "date"
	TypeDatetime    Type = "datetime"
	TypeSelect      Type = "select"
	TypeMultiSelect Type = "multi_select"
	TypeColor       Type = "color"
	TypeRange       Type = "range"
	TypeURL         Type = "url"
	TypeFile        Type = "file"
)

var validTypes = map[Type]bool{
	TypeText: true, TypeLongText: true, TypeNumber: true, TypeDecimal: true,
	TypeBoolean: true, TypeDate: true, TypeDatetime: true, TypeSelect: true,
	TypeMultiSelect: true, TypeColor: true, TypeRange: true, TypeURL: true,
	TypeFile: true,
}

// IsValid reports whether t is a declared attribute type.
func (t Type) IsValid() bool { return validTypes[t] }

// IsRangeLike reports whether observed min/max bounds make sense for t.
func (t Type) IsRangeLike() bool {
	switch t {
	case TypeNumber, TypeDecimal, TypeRange, TypeDate, TypeDatetime:
		return true
	default:
		return false
	}
}

// Definition is an immutable value object describing a declared attribute.
// A type change upstream is treated as a new attribute; existing index values
// are never reinterpreted.
type Definition struct {
	code       string
	typ        Type
	filterable bool
	searchable bool
	unit       string
	allowed    []string
}

// NewDefinition validates and creates a Definition.
func NewDefinition(code string, typ Type, filterable, searchable bool, unit string, allowed []string) (Definition, error) {
	if code == "" {
		return Definition{}, fmt.Errorf("attribute code is required")
	}
	if len(code) > 64 {
		return Definition{}, fmt.Errorf("attribute code %q too long (max 64)", code)
	}
	if !typ.IsValid() {
		return Definition{}, fmt.Errorf("invalid attribute type %q for %q", typ, code)
	}
	if len(allowed) > 0 && typ != TypeSelect && typ != TypeMultiSelect {
		return Definition{}, fmt.Errorf("allowed values only apply to select types, got %q for %q", typ, code)
	}
	return Definition{
		code: code, typ: typ,
		filterable: filterable, searchable: searchable,
		unit: unit, allowed: cloneStrings(allowed),
	}, nil
}

// Reconstruct creates a Definition without validation (storage hydration).
func Reconstruct(code string, typ Type, filterable, searchable bool, unit string, allowed []string) Definition {
	return Definition{code: code, typ: typ, filterable: filterable, searchable: searchable, unit: unit, allowed: allowed}
}

// Code returns the stable attribute identifier.
func (d Definition) Code() string { return d.code }

// AttrType returns the declared type.
func (d Definition) AttrType() Type { return d.typ }

// Filterable reports whether the attribute participates in filtering.
func (d Definition) Filterable() bool { return d.filterable }

// Searchable reports whether the attribute feeds free-text search.
func (d Definition) Searchable() bool { return d.searchable }

// Unit returns the display unit, if any.
func (d Definition) Unit() string { return d.unit }

// Allowed returns the allowed-value set for select types.
func (d Definition) Allowed() []string { return d.allowed }

// Indexed reports whether values of this attribute belong in the filter index.
func (d Definition) Indexed() bool { return d.filterable || d.searchable }

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}
