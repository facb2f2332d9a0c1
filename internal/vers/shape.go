package vers

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

// Rule is one migration step body. It reads and rewrites the model's typed
// fields and catch-all bag; it never touches SchemaVersion.
type Rule[M Model] func(m M) error

// Bridge is the rule used for a step with no declared rule. It changes
// nothing.
func Bridge[M Model](M) error { return nil }

// Field is a declared property of a shape.
type Field[M Model] struct {
	Name string
	Type string

	decode func(m M, v doc.Value) error
	encode func(m M) doc.Value
}

// Prop declares a field stored under name, read and written through the
// struct field ptr returns, converted by c.
func Prop[M Model, T any](name string, ptr func(M) *T, c Coercion[T]) Field[M] {
	return Field[M]{
		Name: name,
		Type: c.Type,
		decode: func(m M, v doc.Value) error {
			x, ok := c.Decode(v)
			if !ok {
				return &DecodeCoercionError{Field: name, Expected: c.Type, Got: v.Type}
			}
			*ptr(m) = x
			return nil
		},
		encode: func(m M) doc.Value {
			return c.Encode(*ptr(m))
		},
	}
}

// Shape is one concrete model type authored against a home version.
//
// Upgrades is keyed by the version departed from going up, Downgrades by the
// version departed from going down. A shape with neither is a floor shape.
type Shape[M Model] struct {
	Name   string
	Family string
	Home   int
	New    func() M
	Fields []Field[M]

	Upgrades   map[int]Rule[M]
	Downgrades map[int]Rule[M]
}

// Create returns a new model at the shape's home version.
func (s *Shape[M]) Create(id string) M {
	m := s.New()
	meta := m.Versioning()
	meta.ID = id
	meta.SchemaVersion = s.Home
	meta.CatchAll = doc.Bag{}
	return m
}

// Decode builds a model from a raw document. Declared fields are coerced
// into typed fields; everything else lands in the catch-all bag. The model is
// left at the stored version.
func (s *Shape[M]) Decode(raw doc.Raw) (M, error) {
	var zero M

	id, err := raw.ID()
	if err != nil {
		return zero, err
	}
	version, err := raw.Version()
	if err != nil {
		return zero, fmt.Errorf("document %s: %w", id, err)
	}

	m := s.New()
	meta := m.Versioning()
	meta.ID = id
	meta.SchemaVersion = version
	meta.CatchAll = doc.Bag{}

	declared := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		declared[f.Name] = true
		v, ok := raw[f.Name]
		if !ok {
			continue
		}
		if err := f.decode(m, v); err != nil {
			return zero, err
		}
	}

	for name, v := range raw.Clone() {
		if name == doc.IDField || name == doc.VersionField || declared[name] {
			continue
		}
		meta.CatchAll[name] = v
	}

	return m, nil
}

// Encode renders a model as a raw document: identity, version, every
// declared field, then the catch-all bag.
func (s *Shape[M]) Encode(m M) (doc.Raw, error) {
	meta := m.Versioning()
	if meta.ID == "" {
		return nil, doc.ErrMissingID
	}

	raw := make(doc.Raw, len(s.Fields)+len(meta.CatchAll)+2)
	raw[doc.IDField] = doc.String(meta.ID)
	if err := raw.SetVersion(meta.SchemaVersion); err != nil {
		return nil, fmt.Errorf("%s %s: %w", s.Name, meta.ID, err)
	}
	for _, f := range s.Fields {
		raw[f.Name] = f.encode(m)
	}

	for _, name := range slices.Sorted(maps.Keys(meta.CatchAll)) {
		if _, taken := raw[name]; taken {
			return nil, fmt.Errorf("%w: %s in %s", ErrBagCollision, name, s.Name)
		}
		raw[name] = meta.CatchAll[name]
	}
	return raw.Clone(), nil
}

// Load decodes raw and reconciles the result to target.
func (s *Shape[M]) Load(raw doc.Raw, target int) (M, error) {
	m, err := s.Decode(raw)
	if err != nil {
		var zero M
		return zero, err
	}
	if err := s.Reconcile(m, target); err != nil {
		var zero M
		return zero, err
	}
	return m, nil
}
