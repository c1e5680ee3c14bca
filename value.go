package props

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	layering "github.com/goliatone/go-props/layering"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	// ValueEmpty is the canonical empty value. It is distinct from a key being
	// absent from a snapshot.
	ValueEmpty ValueKind = iota
	ValueBool
	ValueString
	ValueNumber
	// ValueObject holds a structured payload (maps, slices, structs).
	ValueObject
)

func (k ValueKind) String() string {
	switch k {
	case ValueEmpty:
		return "empty"
	case ValueBool:
		return "bool"
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	case ValueObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the dynamic value carried by raw and resolved snapshots. The zero
// Value is Empty.
type Value struct {
	kind ValueKind
	b    bool
	s    string
	n    float64
	obj  any
}

// Empty is the canonical empty value.
var Empty = Value{}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: ValueBool, b: b} }

// String wraps a string.
func String(s string) Value { return Value{kind: ValueString, s: s} }

// Number wraps a float64. NaN and negative zero are preserved as given.
func Number(n float64) Value { return Value{kind: ValueNumber, n: n} }

// Object wraps a structured payload. The payload is held by reference; two
// Object values are the same only when they share that reference. A nil
// payload yields Empty.
func Object(payload any) Value {
	if payload == nil {
		return Empty
	}
	return Value{kind: ValueObject, obj: payload}
}

// ValueOf converts loosely typed host data into a Value. nil becomes Empty,
// Go numeric types and json.Number become Number, and everything else that is
// not a bool or string becomes an Object.
func ValueOf(v any) Value {
	switch typed := v.(type) {
	case nil:
		return Empty
	case Value:
		return typed
	case *Value:
		if typed == nil {
			return Empty
		}
		return *typed
	case bool:
		return Bool(typed)
	case string:
		return String(typed)
	case float64:
		return Number(typed)
	case float32:
		return Number(float64(typed))
	case int:
		return Number(float64(typed))
	case int8:
		return Number(float64(typed))
	case int16:
		return Number(float64(typed))
	case int32:
		return Number(float64(typed))
	case int64:
		return Number(float64(typed))
	case uint:
		return Number(float64(typed))
	case uint8:
		return Number(float64(typed))
	case uint16:
		return Number(float64(typed))
	case uint32:
		return Number(float64(typed))
	case uint64:
		return Number(float64(typed))
	case json.Number:
		if f, err := typed.Float64(); err == nil {
			return Number(f)
		}
		return String(typed.String())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			return Empty
		}
	}
	return Object(v)
}

// Kind reports the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsEmpty reports whether v is the canonical empty value.
func (v Value) IsEmpty() bool { return v.kind == ValueEmpty }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == ValueBool }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == ValueString }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == ValueNumber }

// AsObject returns a deep copy of the structured payload so callers cannot
// mutate data held by a snapshot.
func (v Value) AsObject() (any, bool) {
	if v.kind != ValueObject {
		return nil, false
	}
	return layering.Clone(v.obj), true
}

// Interface returns the Go representation of v: nil, bool, string, float64,
// or a deep copy of the object payload.
func (v Value) Interface() any {
	switch v.kind {
	case ValueBool:
		return v.b
	case ValueString:
		return v.s
	case ValueNumber:
		return v.n
	case ValueObject:
		return layering.Clone(v.obj)
	default:
		return nil
	}
}

// Text renders v the way enum membership compares literals.
func (v Value) Text() string {
	switch v.kind {
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueString:
		return v.s
	case ValueNumber:
		return formatNumber(v.n)
	case ValueObject:
		return fmt.Sprint(v.obj)
	default:
		return "null"
	}
}

func (v Value) String() string {
	if v.kind == ValueString {
		return strconv.Quote(v.s)
	}
	return v.Text()
}

// MarshalJSON encodes v as its JSON counterpart. NaN and infinities are
// encoded as strings since JSON has no literal for them.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == ValueNumber && (math.IsNaN(v.n) || math.IsInf(v.n, 0)) {
		return json.Marshal(formatNumber(v.n))
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON literal through ValueOf. Numbers are read
// with full float64 precision.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return fmt.Errorf("props: decode value: %w", err)
	}
	*v = ValueOf(decoded)
	return nil
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case math.Abs(n) >= 1e21:
		return strconv.FormatFloat(n, 'g', -1, 64)
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}

// SameValue is the equality used for diffing. NaN equals NaN, +0 and -0 are
// distinct, and objects are equal only when they share the same reference.
func SameValue(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case ValueEmpty:
		return true
	case ValueBool:
		return a.b == b.b
	case ValueString:
		return a.s == b.s
	case ValueNumber:
		if math.IsNaN(a.n) || math.IsNaN(b.n) {
			return math.IsNaN(a.n) && math.IsNaN(b.n)
		}
		if a.n == 0 && b.n == 0 {
			return math.Signbit(a.n) == math.Signbit(b.n)
		}
		return a.n == b.n
	case ValueObject:
		return sameReference(a.obj, b.obj)
	default:
		return false
	}
}

func sameReference(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	}
	if ra.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
