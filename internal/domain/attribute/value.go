package attribute

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Time layouts used by the date and datetime encodings.
const (
	dateLayout     = "2006-01-02"
	datetimeLayout = time.RFC3339Nano
)

// Value is a tagged union holding one typed attribute value. Exactly one
// slot is populated per declared type. Multi-select members are kept sorted
// and deduplicated, so equality is set-equality regardless of input order.
type Value struct {
	typ     Type
	text    string
	number  float64
	boolean bool
	ts      time.Time
	list    []string
	lo, hi  float64
}

// NewText creates a value for the string-backed types:
// text, long_text, select, color, url, file.
func NewText(typ Type, s string) (Value, error) {
	switch typ {
	case TypeText, TypeLongText, TypeSelect, TypeColor, TypeURL, TypeFile:
	default:
		return Value{}, fmt.Errorf("type %q does not hold a text value", typ)
	}
	if s == "" {
		return Value{}, fmt.Errorf("empty value for %q attribute", typ)
	}
	return Value{typ: typ, text: s}, nil
}

// NewNumber creates a number or decimal value.
func NewNumber(typ Type, n float64) (Value, error) {
	if typ != TypeNumber && typ != TypeDecimal {
		return Value{}, fmt.Errorf("type %q does not hold a numeric value", typ)
	}
	return Value{typ: typ, number: n}, nil
}

// NewBoolean creates a boolean value.
func NewBoolean(b bool) Value {
	return Value{typ: TypeBoolean, boolean: b}
}

// NewDate creates a date value; the time is truncated to day precision in UTC.
func NewDate(t time.Time) Value {
	y, m, d := t.UTC().Date()
	return Value{typ: TypeDate, ts: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDatetime creates a datetime value in UTC.
func NewDatetime(t time.Time) Value {
	return Value{typ: TypeDatetime, ts: t.UTC()}
}

// NewMultiSelect creates a multi-select value from the given members.
// Members are sorted and deduplicated: two lists with the same members
// compare equal whatever their original order.
func NewMultiSelect(members []string) (Value, error) {
	if len(members) == 0 {
		return Value{}, fmt.Errorf("multi_select requires at least one member")
	}
	canon := slices.Clone(members)
	slices.Sort(canon)
	canon = slices.Compact(canon)
	return Value{typ: TypeMultiSelect, list: canon}, nil
}

// NewRange creates a numeric range value.
func NewRange(lo, hi float64) (Value, error) {
	if lo > hi {
		return Value{}, fmt.Errorf("range min %v greater than max %v", lo, hi)
	}
	return Value{typ: TypeRange, lo: lo, hi: hi}, nil
}

// ValueType returns the declared type of the value.
func (v Value) ValueType() Type { return v.typ }

// IsZero reports whether the value is the uninitialized zero Value.
func (v Value) IsZero() bool { return v.typ == "" }

// Text returns the string slot.
func (v Value) Text() string { return v.text }

// Number returns the numeric slot.
func (v Value) Number() float64 { return v.number }

// Boolean returns the boolean slot.
func (v Value) Boolean() bool { return v.boolean }

// Time returns the date/datetime slot.
func (v Value) Time() time.Time { return v.ts }

// Members returns the multi-select slot.
func (v Value) Members() []string { return v.list }

// Bounds returns the range slot.
func (v Value) Bounds() (lo, hi float64) { return v.lo, v.hi }

// Strings returns the canonical string forms used for accepted-set
// membership tests and facet bucketing. Multi-select yields one entry per
// member; every other type yields exactly one.
func (v Value) Strings() []string {
	switch v.typ {
	case TypeText, TypeLongText, TypeSelect, TypeColor, TypeURL, TypeFile:
		return []string{v.text}
	case TypeNumber, TypeDecimal:
		return []string{formatFloat(v.number)}
	case TypeBoolean:
		return []string{strconv.FormatBool(v.boolean)}
	case TypeDate:
		return []string{v.ts.Format(dateLayout)}
	case TypeDatetime:
		return []string{v.ts.Format(datetimeLayout)}
	case TypeMultiSelect:
		return v.list
	case TypeRange:
		return []string{formatFloat(v.lo) + ".." + formatFloat(v.hi)}
	default:
		return nil
	}
}

// MatchesAny reports whether the value intersects the accepted set.
// For multi-select this is set intersection, not subset.
func (v Value) MatchesAny(accepted map[string]bool) bool {
	for _, s := range v.Strings() {
		if accepted[s] {
			return true
		}
	}
	return false
}

// Equal reports whether two values are identical. Multi-select compares as
// sets since members are canonicalized at construction.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeMultiSelect:
		return slices.Equal(v.list, o.list)
	case TypeDate, TypeDatetime:
		return v.ts.Equal(o.ts)
	case TypeRange:
		return v.lo == o.lo && v.hi == o.hi
	default:
		return v.text == o.text && v.number == o.number && v.boolean == o.boolean
	}
}

type valueJSON struct {
	T Type            `json:"t"`
	V json.RawMessage `json:"v"`
}

type rangeJSON struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MarshalJSON encodes the value as {"t": <type>, "v": <payload>} with one
// payload rule per declared type.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.typ {
	case TypeText, TypeLongText, TypeSelect, TypeColor, TypeURL, TypeFile:
		payload = v.text
	case TypeNumber, TypeDecimal:
		payload = v.number
	case TypeBoolean:
		payload = v.boolean
	case TypeDate:
		payload = v.ts.Format(dateLayout)
	case TypeDatetime:
		payload = v.ts.Format(datetimeLayout)
	case TypeMultiSelect:
		payload = v.list
	case TypeRange:
		payload = rangeJSON{Min: v.lo, Max: v.hi}
	default:
		return nil, fmt.Errorf("marshal attribute value: unknown type %q", v.typ)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal attribute payload: %w", err)
	}
	return json.Marshal(valueJSON{T: v.typ, V: raw})
}

// UnmarshalJSON decodes a value previously written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw valueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal attribute value: %w", err)
	}

	switch raw.T {
	case TypeText, TypeLongText, TypeSelect, TypeColor, TypeURL, TypeFile:
		var s string
		if err := json.Unmarshal(raw.V, &s); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", raw.T, err)
		}
		*v = Value{typ: raw.T, text: s}
	case TypeNumber, TypeDecimal:
		var n float64
		if err := json.Unmarshal(raw.V, &n); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", raw.T, err)
		}
		*v = Value{typ: raw.T, number: n}
	case TypeBoolean:
		var b bool
		if err := json.Unmarshal(raw.V, &b); err != nil {
			return fmt.Errorf("unmarshal boolean payload: %w", err)
		}
		*v = Value{typ: raw.T, boolean: b}
	case TypeDate, TypeDatetime:
		var s string
		if err := json.Unmarshal(raw.V, &s); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", raw.T, err)
		}
		layout := datetimeLayout
		if raw.T == TypeDate {
			layout = dateLayout
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", raw.T, s, err)
		}
		*v = Value{typ: raw.T, ts: t.UTC()}
	case TypeMultiSelect:
		var list []string
		if err := json.Unmarshal(raw.V, &list); err != nil {
			return fmt.Errorf("unmarshal multi_select payload: %w", err)
		}
		mv, err := NewMultiSelect(list)
		if err != nil {
			return err
		}
		*v = mv
	case TypeRange:
		var r rangeJSON
		if err := json.Unmarshal(raw.V, &r); err != nil {
			return fmt.Errorf("unmarshal range payload: %w", err)
		}
		*v = Value{typ: TypeRange, lo: r.Min, hi: r.Max}
	default:
		return fmt.Errorf("unmarshal attribute value: unknown type %q", raw.T)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
