package types

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Kind discriminates the shapes a property value can take
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNumber
	KindString
	KindBool
	KindMap
	KindList
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the shapes entity properties can hold:
// number, string, bool, nested map, or list. Capabilities check the kind
// before reading so malformed sheets surface as errors, not panics.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	m    map[string]Value
	l    []Value
}

// Number creates a numeric value
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// String creates a string value
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Bool creates a boolean value
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Map creates a map value from the given entries
func Map(m map[string]Value) Value {
	if m == nil {
		m = make(map[string]Value)
	}
	return Value{kind: KindMap, m: m}
}

// List creates a list value
func List(l ...Value) Value {
	return Value{kind: KindList, l: l}
}

// Kind returns the value's discriminator
func (v Value) Kind() Kind { return v.kind }

// Num returns the numeric payload; ok is false for non-numbers
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Str returns the string payload; ok is false for non-strings
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Boolean returns the bool payload; ok is false for non-bools
func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsMap returns the map payload; ok is false for non-maps
func (v Value) AsMap() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}

// AsList returns the list payload; ok is false for non-lists
func (v Value) AsList() ([]Value, bool) {
	return v.l, v.kind == KindList
}

// Get looks up a key on a map value
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Clone returns a deep copy
func (v Value) Clone() Value {
	switch v.kind {
	case KindMap:
		m := make(map[string]Value, len(v.m))
		for k, val := range v.m {
			m[k] = val.Clone()
		}
		return Value{kind: KindMap, m: m}
	case KindList:
		l := make([]Value, len(v.l))
		for i, val := range v.l {
			l[i] = val.Clone()
		}
		return Value{kind: KindList, l: l}
	default:
		return v
	}
}

// Interface converts to the equivalent untyped representation
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindMap:
		m := make(map[string]interface{}, len(v.m))
		for k, val := range v.m {
			m[k] = val.Interface()
		}
		return m
	case KindList:
		l := make([]interface{}, len(v.l))
		for i, val := range v.l {
			l[i] = val.Interface()
		}
		return l
	default:
		return nil
	}
}

// FromInterface converts an untyped JSON-shaped value into a Value
func FromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, val := range t {
			conv, err := FromInterface(val)
			if err != nil {
				return Value{}, err
			}
			m[k] = conv
		}
		return Map(m), nil
	case []interface{}:
		l := make([]Value, len(t))
		for i, val := range t {
			conv, err := FromInterface(val)
			if err != nil {
				return Value{}, err
			}
			l[i] = conv
		}
		return List(l...), nil
	case nil:
		return Map(nil), nil
	default:
		return Value{}, fmt.Errorf("unsupported property value type %T", raw)
	}
}

// MarshalJSON encodes the underlying payload without a wrapper object
func (v Value) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON shape into the matching kind
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}
	conv, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = conv
	return nil
}
