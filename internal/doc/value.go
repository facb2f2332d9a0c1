// Package doc holds the physical record model: a raw document is an unordered
// mapping from field name to a BSON value, and a bag is the subset of those
// fields a model shape does not declare.
//
// Values are BSON raw values (a type tag plus encoded bytes), so every kind the
// store understands survives a trip through a bag untouched, including the
// int32/int64 distinction and millisecond timestamps.
package doc

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Value is a single tagged field value.
type Value = bson.RawValue

// Null returns the BSON null value.
func Null() Value {
	return Value{Type: bson.TypeNull}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return mustValue(b)
}

// Int32 returns a 32-bit integer value.
func Int32(i int32) Value {
	return mustValue(i)
}

// Int64 returns a 64-bit integer value.
func Int64(i int64) Value {
	return mustValue(i)
}

// Double returns a double value.
func Double(f float64) Value {
	return mustValue(f)
}

// String returns a UTF-8 string value.
func String(s string) Value {
	return mustValue(s)
}

// Time returns a UTC datetime value. BSON datetimes carry millisecond
// precision; anything finer is truncated.
func Time(t time.Time) Value {
	return mustValue(bson.NewDateTimeFromTime(t))
}

// List returns an ordered list of values.
func List(vs ...Value) Value {
	arr := make(bson.A, len(vs))
	for i, v := range vs {
		arr[i] = v
	}
	return mustValue(arr)
}

// Map returns a nested document value. Keys are written in sorted order.
func Map(fields map[string]Value) Value {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: fields[k]})
	}
	return mustValue(d)
}

// AsTime returns the value as a UTC time if it is a BSON datetime.
func AsTime(v Value) (time.Time, bool) {
	ms, ok := v.DateTimeOK()
	if !ok {
		return time.Time{}, false
	}
	return bson.DateTime(ms).Time().UTC(), true
}

// IsNull reports whether v is BSON null or undefined.
func IsNull(v Value) bool {
	return v.Type == bson.TypeNull || v.Type == bson.TypeUndefined
}

// FromGo converts a decoded Go value, as produced by YAML, TOML or JSON
// decoders, into a Value. Integers that fit in 32 bits become int32, larger
// ones int64.
func FromGo(in any) (Value, error) {
	switch x := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return intValue(int64(x)), nil
	case int8:
		return Int32(int32(x)), nil
	case int16:
		return Int32(int32(x)), nil
	case int32:
		return Int32(x), nil
	case int64:
		return intValue(x), nil
	case uint8:
		return Int32(int32(x)), nil
	case uint16:
		return Int32(int32(x)), nil
	case uint32:
		return intValue(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", x)
		}
		return intValue(int64(x)), nil
	case float32:
		return Double(float64(x)), nil
	case float64:
		return Double(x), nil
	case string:
		return String(x), nil
	case time.Time:
		return Time(x), nil
	case []any:
		vs := make([]Value, len(x))
		for i, e := range x {
			v, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			vs[i] = v
		}
		return List(vs...), nil
	case []map[string]any:
		vs := make([]Value, len(x))
		for i, e := range x {
			v, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			vs[i] = v
		}
		return List(vs...), nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := FromGo(e)
			if err != nil {
				return Value{}, fmt.Errorf("field %s: %w", k, err)
			}
			fields[k] = v
		}
		return Map(fields), nil
	case bson.D, bson.M, bson.A, bson.DateTime:
		t, data, err := bson.MarshalValue(x)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Value: data}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", in)
	}
}

func intValue(i int64) Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return Int32(int32(i))
	}
	return Int64(i)
}

func mustValue(in any) Value {
	t, data, err := bson.MarshalValue(in)
	if err != nil {
		// Only called with types the default registry always encodes.
		panic(fmt.Sprintf("doc: cannot encode %T: %v", in, err))
	}
	return Value{Type: t, Value: data}
}
