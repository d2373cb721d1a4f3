package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Value is a sealed interface representing a native literal value.
// Only Null, String, Int, Float, Bool, Array and Object implement this.
//
// Literal TypedValues in the compiler always carry a Value; SQL fragments
// never do. Keeping the union closed means every rendering switch is
// exhaustive.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents a literal null.
type Null struct{}

func (Null) irValue() {}

// String represents a literal string.
type String string

func (String) irValue() {}

// Int represents a literal integer. Booleans and integer-encoded dates are
// stored as Int as well; the Type tag tells them apart.
type Int int64

func (Int) irValue() {}

// Float represents a literal number with a fractional part.
type Float float64

func (Float) irValue() {}

// Bool represents a literal boolean before it is lowered to 0/1.
type Bool bool

func (Bool) irValue() {}

// Array represents a literal list of values.
type Array []Value

func (Array) irValue() {}

// Object represents a literal map. Objects never reach SQL; they exist so
// arbitrary JSON-shaped input can be carried through diagnostics.
type Object map[string]Value

func (Object) irValue() {}

// SortedKeys returns the object's keys in lexical order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromNative converts a JSON-shaped Go value into a Value.
//
// Accepted inputs are what encoding/json and yaml.v3 produce when decoding
// into interface{} (nil, bool, string, float64, json.Number, int variants,
// []any, map[string]any) plus time.Time, which becomes an integer-encoded
// date Int. Numbers without a fractional part become Int.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return numberValue(float64(val)), nil
	case float64:
		return numberValue(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return numberValue(f), nil
	case time.Time:
		return Int(DateToInt(val)), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			v, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = v
		}
		return arr, nil
	case []string:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = String(elem)
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			v, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = v
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// numberValue classifies a float: whole numbers are integers.
func numberValue(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<63 {
		return Int(int64(f))
	}
	return Float(f)
}

// Native converts a Value back into its plain Go form.
func Native(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Native(elem)
		}
		return out
	default:
		return nil
	}
}

// DateToInt encodes a calendar date as YYYYMMDD.
func DateToInt(t time.Time) int64 {
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}
