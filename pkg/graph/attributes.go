package graph

import (
	"encoding/json"
	"maps"
	"reflect"
)

// Well-known attribute names.
const (
	AttrX         = "x"
	AttrY         = "y"
	AttrSize      = "size"
	AttrColor     = "color"
	AttrLabel     = "label"
	AttrCategory  = "category"
	AttrType      = "type"
	AttrHidden    = "hidden"
	AttrImportant = "important"
	AttrScore     = "score"
	AttrWeight    = "weight"
	AttrZ         = "z"
)

// Attributes stores arbitrary key-value pairs attached to nodes and edges.
type Attributes map[string]any

// Clone returns a deep copy of the attributes. Nested maps and slices are
// copied recursively; other values are copied as-is. A nil receiver yields an
// empty, non-nil map.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge copies every entry of other into a. Values from other win on conflict.
func (a Attributes) Merge(other Attributes) {
	for k, v := range other {
		a[k] = cloneValue(v)
	}
}

// Equal reports whether a and b hold the same keys with equal values.
// Numbers compare by value regardless of their Go type.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !valuesEqual(va, vb) {
			return false
		}
	}
	return true
}

// Bool reports whether the attribute is set to true.
func (a Attributes) Bool(name string) bool {
	v, ok := a[name].(bool)
	return ok && v
}

// Float returns the attribute as a float64 if it holds a number.
func (a Attributes) Float(name string) (float64, bool) {
	return ToFloat(a[name])
}

// String returns the attribute as a string if it holds one.
func (a Attributes) String(name string) (string, bool) {
	s, ok := a[name].(string)
	return s, ok
}

// Int returns the attribute as an int if it holds a whole number.
func (a Attributes) Int(name string) (int, bool) {
	f, ok := ToFloat(a[name])
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// ToFloat converts any numeric value, including json.Number, to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Attributes:
		return t.Clone()
	case map[string]any:
		return map[string]any(Attributes(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case map[string]string:
		return maps.Clone(t)
	}
	return v
}

func valuesEqual(a, b any) bool {
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		return ok && fa == fb
	}
	switch ta := a.(type) {
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok {
			if ab, ok2 := b.(Attributes); ok2 {
				tb, ok = map[string]any(ab), true
			}
		}
		return ok && Attributes(ta).Equal(Attributes(tb))
	case Attributes:
		switch tb := b.(type) {
		case Attributes:
			return ta.Equal(tb)
		case map[string]any:
			return ta.Equal(Attributes(tb))
		}
		return false
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !valuesEqual(ta[i], tb[i]) {
				return false
			}
		}
		return true
	case []string:
		tb, ok := b.([]string)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if ta[i] != tb[i] {
				return false
			}
		}
		return true
	case map[string]string:
		tb, ok := b.(map[string]string)
		return ok && maps.Equal(ta, tb)
	}
	return reflect.DeepEqual(a, b)
}
