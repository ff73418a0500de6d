package models

import (
	"encoding/json"
	"fmt"
)

// MetaKind discriminates the value held by a MetaValue.
type MetaKind int

// Metadata value kinds.
const (
	MetaString MetaKind = iota
	MetaNumber
	MetaBool
	MetaStringList
)

// MetaValue is a tagged union over the scalar and list types allowed in
// document metadata: string, number, bool, or list of strings. Keeping the
// union explicit (rather than map[string]any) keeps equality filters type-safe.
type MetaValue struct {
	Kind MetaKind
	Str  string
	Num  float64
	Bool bool
	List []string
}

// String returns a MetaValue holding a string.
func String(s string) MetaValue { return MetaValue{Kind: MetaString, Str: s} }

// Number returns a MetaValue holding a number.
func Number(n float64) MetaValue { return MetaValue{Kind: MetaNumber, Num: n} }

// Bool returns a MetaValue holding a bool.
func Bool(b bool) MetaValue { return MetaValue{Kind: MetaBool, Bool: b} }

// StringList returns a MetaValue holding a list of strings.
func StringList(l ...string) MetaValue { return MetaValue{Kind: MetaStringList, List: l} }

// Equal reports whether two metadata values have the same kind and content.
// Lists compare element-wise in order.
func (v MetaValue) Equal(o MetaValue) bool {
	if v.Kind != o.Kind {
		return false
	}

	switch v.Kind {
	case MetaString:
		return v.Str == o.Str
	case MetaNumber:
		return v.Num == o.Num
	case MetaBool:
		return v.Bool == o.Bool
	case MetaStringList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != o.List[i] {
				return false
			}
		}
		return true
	}

	return false
}

// MarshalJSON writes the bare underlying value, not the union wrapper.
func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case MetaString:
		return json.Marshal(v.Str)
	case MetaNumber:
		return json.Marshal(v.Num)
	case MetaBool:
		return json.Marshal(v.Bool)
	case MetaStringList:
		if v.List == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.List)
	}

	return nil, fmt.Errorf("unknown metadata kind %d", v.Kind)
}

// UnmarshalJSON accepts a bare string, number, bool, or list of strings.
func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding metadata value: %w", err)
	}

	switch t := raw.(type) {
	case string:
		*v = String(t)
	case float64:
		*v = Number(t)
	case bool:
		*v = Bool(t)
	case []any:
		list := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return fmt.Errorf("metadata lists may only contain strings, got %T", e)
			}
			list = append(list, s)
		}
		*v = StringList(list...)
	default:
		return fmt.Errorf("unsupported metadata value type %T", raw)
	}

	return nil
}

// Metadata is an open-ended mapping of string keys to tagged values.
type Metadata map[string]MetaValue

// Clone returns a shallow copy. List values share backing arrays; callers
// must not mutate them in place.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}

	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// Matches reports whether every key in filter is present in m with an equal
// value. Absent keys never match, so an empty filter matches everything.
func (m Metadata) Matches(filter Metadata) bool {
	for k, want := range filter {
		got, ok := m[k]
		if !ok || !got.Equal(want) {
			return false
		}
	}

	return true
}

// GetString returns the string held under key, or "" if absent or non-string.
func (m Metadata) GetString(key string) string {
	v, ok := m[key]
	if !ok || v.Kind != MetaString {
		return ""
	}

	return v.Str
}

// GetNumber returns the number held under key, or 0 if absent or non-numeric.
func (m Metadata) GetNumber(key string) float64 {
	v, ok := m[key]
	if !ok || v.Kind != MetaNumber {
		return 0
	}

	return v.Num
}
