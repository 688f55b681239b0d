package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Value is a tagged union used for transaction metadata and rule condition
// operands: string, number, bool, list or nested map.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

func ListValue(vs ...Value) Value { return Value{kind: KindList, list: vs} }

func MapValue(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) List() ([]Value, bool) { return v.list, v.kind == KindList }

func (v Value) Map() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Equal reports whether both values hold the same variant and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Lookup walks nested maps along path. A missing key or a non-map
// intermediate yields false.
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, key := range path {
		m, ok := cur.Map()
		if !ok {
			return Value{}, false
		}
		cur, ok = m[key]
		if !ok {
			return Value{}, false
		}
	}
	return cur, !cur.IsNull()
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueOf converts a decoded JSON value (as produced by encoding/json into
// an `any`) into a Value.
func ValueOf(raw any) (Value, error) {
	return fromAny(raw)
}

func fromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case float64:
		return NumberValue(t), nil
	case int:
		return NumberValue(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return NumberValue(f), nil
	case []any:
		list := make([]Value, 0, len(t))
		for _, item := range t {
			iv, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			list = append(list, iv)
		}
		return ListValue(list...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			iv, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = iv
		}
		return MapValue(m), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Metadata is the free-form annotation map stored on a TransactionRecord.
type Metadata map[string]Value

// Get resolves a dotted path such as "reconciliation.documentId".
func (m Metadata) Get(path ...string) (Value, bool) {
	if len(path) == 0 || m == nil {
		return Value{}, false
	}
	first, ok := m[path[0]]
	if !ok {
		return Value{}, false
	}
	return first.Lookup(path[1:]...)
}

// Keys returns the top-level keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
