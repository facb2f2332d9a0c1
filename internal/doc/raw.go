package doc

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// IDField is the identifier field of every stored document.
	IDField = "_id"

	// VersionField holds the schema version a document was written at.
	VersionField = "schemaVersion"

	// DefaultVersion is assumed for documents written before versioning.
	DefaultVersion = 1
)

var (
	// ErrMissingID is returned when a document has no string identifier.
	ErrMissingID = errors.New("document has no string _id")

	// ErrBadVersion is returned when the schema version field is not an
	// integer between DefaultVersion and math.MaxInt32.
	ErrBadVersion = errors.New("invalid schemaVersion")
)

// Raw is a stored document: field name to value, order irrelevant.
type Raw map[string]Value

// ID returns the document identifier.
func (r Raw) ID() (string, error) {
	v, ok := r[IDField]
	if !ok {
		return "", ErrMissingID
	}
	id, ok := v.StringValueOK()
	if !ok || id == "" {
		return "", ErrMissingID
	}
	return id, nil
}

// Version returns the stored schema version, or DefaultVersion when the
// field is absent or null.
func (r Raw) Version() (int, error) {
	v, ok := r[VersionField]
	if !ok || IsNull(v) {
		return DefaultVersion, nil
	}
	var n int64
	switch v.Type {
	case bson.TypeInt32:
		n = int64(v.Int32())
	case bson.TypeInt64:
		n = v.Int64()
	case bson.TypeDouble:
		f := v.Double()
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %v", ErrBadVersion, f)
		}
		n = int64(f)
	default:
		return 0, fmt.Errorf("%w: got %s", ErrBadVersion, v.Type)
	}
	if err := CheckVersion(n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// CheckVersion returns ErrBadVersion unless v can be stored as a schema
// version.
func CheckVersion(v int64) error {
	if v < DefaultVersion || v > math.MaxInt32 {
		return fmt.Errorf("%w: %d out of range", ErrBadVersion, v)
	}
	return nil
}

// SetVersion stores the schema version as an int32.
func (r Raw) SetVersion(v int) error {
	if err := CheckVersion(int64(v)); err != nil {
		return err
	}
	r[VersionField] = Int32(int32(v))
	return nil
}

// Clone returns a copy that shares no mutable state with r.
func (r Raw) Clone() Raw {
	out := make(Raw, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the field names in storage order: _id, schemaVersion, then
// the rest sorted.
func (r Raw) Keys() []string {
	rest := slices.Sorted(maps.Keys(r))
	keys := make([]string, 0, len(rest))
	for _, k := range []string{IDField, VersionField} {
		if _, ok := r[k]; ok {
			keys = append(keys, k)
		}
	}
	for _, k := range rest {
		if k == IDField || k == VersionField {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// D returns the document as an ordered bson.D, suitable for drivers.
func (r Raw) D() bson.D {
	d := make(bson.D, 0, len(r))
	for _, k := range r.Keys() {
		d = append(d, bson.E{Key: k, Value: r[k]})
	}
	return d
}

// Marshal encodes the document as BSON.
func (r Raw) Marshal() ([]byte, error) {
	data, err := bson.Marshal(r.D())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// ExtJSON renders the document as relaxed extended JSON.
func (r Raw) ExtJSON() (string, error) {
	data, err := bson.MarshalExtJSON(r.D(), false, false)
	if err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return string(data), nil
}

// Unmarshal decodes a BSON document.
func Unmarshal(data []byte) (Raw, error) {
	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return FromBSON(raw)
}

// FromBSON converts a BSON document into a Raw. Values are copied.
func FromBSON(raw bson.Raw) (Raw, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, fmt.Errorf("failed to read document elements: %w", err)
	}
	out := make(Raw, len(elems))
	for _, e := range elems {
		out[e.Key()] = cloneValue(e.Value())
	}
	return out, nil
}

// UnmarshalExtJSON decodes one extended JSON document.
func UnmarshalExtJSON(data []byte) (Raw, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, fmt.Errorf("invalid extended JSON: %w", err)
	}
	data, err := bson.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode document: %w", err)
	}
	return Unmarshal(data)
}

func cloneValue(v Value) Value {
	return Value{Type: v.Type, Value: slices.Clone(v.Value)}
}
