package vers

import (
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

// Coercion converts between a stored value and a typed field of type T.
// Decode reports false when the value cannot be represented as T.
type Coercion[T any] struct {
	Type   string
	Decode func(doc.Value) (T, bool)
	Encode func(T) doc.Value
}

// Built-in coercions.
var (
	// String accepts strings; null reads as "".
	String = Coercion[string]{
		Type:   "string",
		Decode: decodeString,
		Encode: doc.String,
	}

	// Int32 accepts int32 and in-range int64 values.
	Int32 = Coercion[int32]{
		Type:   "int32",
		Decode: decodeInt32,
		Encode: doc.Int32,
	}

	// Bool accepts booleans.
	Bool = Coercion[bool]{
		Type:   "bool",
		Decode: func(v doc.Value) (bool, bool) { return v.BooleanOK() },
		Encode: doc.Bool,
	}

	// Double accepts any numeric value.
	Double = Coercion[float64]{
		Type:   "double",
		Decode: decodeDouble,
		Encode: doc.Double,
	}

	// Timestamp accepts datetimes; null reads as nil and nil writes null.
	Timestamp = Coercion[*time.Time]{
		Type:   "timestamp",
		Decode: decodeTimestamp,
		Encode: encodeTimestamp,
	}

	// StringFromInt reads a field whose stored representation moved from
	// integer to string. Integers are rendered in base 10.
	StringFromInt = Coercion[string]{
		Type:   "string",
		Decode: decodeStringFromInt,
		Encode: doc.String,
	}

	// IntFromString reads an int32 field that newer writers store as a
	// base-10 string.
	IntFromString = Coercion[int32]{
		Type:   "int32",
		Decode: decodeIntFromString,
		Encode: doc.Int32,
	}
)

func decodeString(v doc.Value) (string, bool) {
	if doc.IsNull(v) {
		return "", true
	}
	return v.StringValueOK()
}

func decodeInt32(v doc.Value) (int32, bool) {
	switch v.Type {
	case bson.TypeInt32:
		return v.Int32(), true
	case bson.TypeInt64:
		i := v.Int64()
		if i < math.MinInt32 || i > math.MaxInt32 {
			return 0, false
		}
		return int32(i), true
	}
	return 0, false
}

func decodeDouble(v doc.Value) (float64, bool) {
	switch v.Type {
	case bson.TypeDouble:
		return v.Double(), true
	case bson.TypeInt32:
		return float64(v.Int32()), true
	case bson.TypeInt64:
		return float64(v.Int64()), true
	}
	return 0, false
}

func decodeTimestamp(v doc.Value) (*time.Time, bool) {
	if doc.IsNull(v) {
		return nil, true
	}
	t, ok := doc.AsTime(v)
	if !ok {
		return nil, false
	}
	return &t, true
}

func encodeTimestamp(t *time.Time) doc.Value {
	if t == nil {
		return doc.Null()
	}
	return doc.Time(*t)
}

func decodeStringFromInt(v doc.Value) (string, bool) {
	switch v.Type {
	case bson.TypeInt32:
		return strconv.FormatInt(int64(v.Int32()), 10), true
	case bson.TypeInt64:
		return strconv.FormatInt(v.Int64(), 10), true
	}
	return decodeString(v)
}

func decodeIntFromString(v doc.Value) (int32, bool) {
	if s, ok := v.StringValueOK(); ok {
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, false
		}
		return int32(i), true
	}
	return decodeInt32(v)
}
