// Package dropvalue implements C1 of the runner: the concrete Value union,
// the unevaluated Expression tree, traversal paths, and the helper
// function registry (spec.md §3, §4.1). It has no knowledge of scopes,
// evaluation, or HTTP — those live in internal/scope, internal/eval, and
// above.
package dropvalue

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the recursive tagged union described in spec.md §3: null,
// boolean, arbitrary-precision number, string, ordered array, or ordered
// object.
type Value struct {
	kind   Kind
	b      bool
	num    *big.Float
	str    string
	arr    []Value
	object *Object
}

// Null is the singleton null Value.
var Null = Value{kind: KindNull}

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int constructs a number Value from an int64.
func Int(n int64) Value { return Value{kind: KindNumber, num: new(big.Float).SetPrec(128).SetInt64(n)} }

// Float constructs a number Value from a float64.
func Float(f float64) Value {
	return Value{kind: KindNumber, num: new(big.Float).SetPrec(128).SetFloat64(f)}
}

// NumberFromString parses a decimal literal into a number Value.
func NumberFromString(s string) (Value, error) {
	f, _, err := big.ParseFloat(s, 10, 128, big.ToNearestEven)
	if err != nil {
		return Value{}, fmt.Errorf("invalid number literal %q: %w", s, err)
	}
	return Value{kind: KindNumber, num: f}, nil
}

// Number constructs a number Value from an existing *big.Float, copying it
// at the module's working precision (used when lowering a parsed config
// literal into a Value).
func Number(f *big.Float) Value { return Value{kind: KindNumber, num: new(big.Float).SetPrec(128).Set(f)} }

// Str constructs a string Value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Array constructs an ordered-sequence Value.
func Array(items []Value) Value { return Value{kind: KindArray, arr: items} }

// ObjectValue constructs an ordered-mapping Value from an Object.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, object: o}
}

// Kind reports the Value's variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload; ok is false if v is not a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsString returns the string payload; ok is false if v is not a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsNumber returns the *big.Float payload; ok is false if v is not a number.
func (v Value) AsNumber() (*big.Float, bool) {
	if v.kind != KindNumber {
		return nil, false
	}
	return v.num, true
}

// AsInt64 converts a number Value to int64; ok is false if v is not a
// number or is not exactly an int64 (a fractional or out-of-range value).
func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	n, acc := v.num.Int64()
	if acc != big.Exact {
		return 0, false
	}
	return n, true
}

// AsArray returns the array payload; ok is false if v is not an array.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsObject returns the object payload; ok is false if v is not an object.
func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.object, true
}

// String renders a Value for display and for use as an assertion
// expected/actual string (spec.md §4.4 report table).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.num)
	case KindString:
		return v.str
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return ""
	}
}

func formatNumber(f *big.Float) string {
	if f.IsInt() {
		i, _ := f.Int(nil)
		return i.String()
	}
	return f.Text('g', -1)
}

// Equal implements deep equality, used by the assertion engine's equals
// operator (spec.md §4.4).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		// Values of different kinds are never equal: a numeric string does
		// not compare equal to a number.
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num.Cmp(b.num) == 0
	case KindString:
		return a.str == b.str
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return a.object.Equal(b.object)
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler so Values round-trip through the
// response walker's JSON deserialization and the output-record
// serialization described in spec.md §4.5.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return []byte(formatNumber(v.num)), nil
	case KindString:
		return json.Marshal(v.str)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		m := make(map[string]json.RawMessage, len(v.object.keys))
		for _, k := range v.object.keys {
			raw, err := json.Marshal(v.object.values[k])
			if err != nil {
				return nil, err
			}
			m[k] = raw
		}
		// preserve insertion order manually since encoding/json sorts map keys
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range v.object.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			b.Write(m[k])
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	default:
		return []byte("null"), nil
	}
}

// FromJSON decodes raw JSON text into a Value, reading the token stream
// with UseNumber so numbers keep their precision and object keys keep
// their source order.
func FromJSON(raw []byte) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, _, err := big.ParseFloat(t.String(), 10, 128, big.ToNearestEven)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindNumber, num: f}, nil
	case string:
		return Str(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Array(items), nil
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, _ := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return ObjectValue(obj), nil
		}
	}
	return Value{}, fmt.Errorf("unsupported json token %#v", tok)
}

// Object is an insertion-ordered mapping of string to Value (spec.md §3).
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject creates an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Set inserts or overwrites key, preserving its original position on
// overwrite (first-write-wins ordering, matching IndexMap semantics used
// by the original implementation).
func (o *Object) Set(key string, v Value) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get looks up key; ok is false if absent.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of entries.
func (o *Object) Len() int { return len(o.keys) }

// Equal implements deep equality between two objects irrespective of
// insertion order (JSON object comparison is order-insensitive).
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.keys) != len(other.keys) {
		return false
	}
	for _, k := range o.keys {
		v, ok := other.Get(k)
		if !ok {
			return false
		}
		if !Equal(o.values[k], v) {
			return false
		}
	}
	return true
}

// SortedKeys returns the keys sorted lexically, useful for deterministic
// diagnostics output.
func (o *Object) SortedKeys() []string {
	keys := o.Keys()
	sort.Strings(keys)
	return keys
}
