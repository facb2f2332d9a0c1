package vers

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

// Loader is the type-erased view of a Shape, for callers that pick a shape
// by name at runtime.
type Loader interface {
	ShapeName() string
	FamilyName() string
	HomeVersion() int
	UpgradeVersions() []int
	DowngradeVersions() []int

	CreateModel(id string) Model
	LoadModel(raw doc.Raw, target int) (Model, error)
	EncodeModel(m Model) (doc.Raw, error)
	Plan(from, to int) ([]Step, error)
}

func (s *Shape[M]) ShapeName() string  { return s.Name }
func (s *Shape[M]) FamilyName() string { return s.Family }
func (s *Shape[M]) HomeVersion() int   { return s.Home }

func (s *Shape[M]) UpgradeVersions() []int {
	return slices.Sorted(maps.Keys(s.Upgrades))
}

func (s *Shape[M]) DowngradeVersions() []int {
	return slices.Sorted(maps.Keys(s.Downgrades))
}

func (s *Shape[M]) CreateModel(id string) Model {
	return s.Create(id)
}

func (s *Shape[M]) LoadModel(raw doc.Raw, target int) (Model, error) {
	m, err := s.Load(raw, target)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Shape[M]) EncodeModel(m Model) (doc.Raw, error) {
	typed, ok := m.(M)
	if !ok {
		return nil, fmt.Errorf("shape %s cannot encode %T", s.Name, m)
	}
	return s.Encode(typed)
}

// Registry holds the shapes known to a build, keyed by name.
type Registry struct {
	mu     sync.RWMutex
	shapes map[string]Loader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{shapes: make(map[string]Loader)}
}

// Register adds a shape. Names must be unique.
func (r *Registry) Register(l Loader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := l.ShapeName()
	if name == "" {
		return fmt.Errorf("shape name cannot be empty")
	}
	if _, exists := r.shapes[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateShape, name)
	}
	r.shapes[name] = l
	return nil
}

// Lookup returns the named shape.
func (r *Registry) Lookup(name string) (Loader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.shapes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShape, name)
	}
	return l, nil
}

// Shapes returns every registered shape ordered by family, home version and
// name.
func (r *Registry) Shapes() []Loader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Collect(maps.Values(r.shapes))
	slices.SortFunc(out, func(a, b Loader) int {
		if a.FamilyName() != b.FamilyName() {
			if a.FamilyName() < b.FamilyName() {
				return -1
			}
			return 1
		}
		if a.HomeVersion() != b.HomeVersion() {
			return a.HomeVersion() - b.HomeVersion()
		}
		if a.ShapeName() < b.ShapeName() {
			return -1
		}
		if a.ShapeName() > b.ShapeName() {
			return 1
		}
		return 0
	})
	return out
}

// Family returns the shapes of one family ordered by home version.
func (r *Registry) Family(family string) []Loader {
	var out []Loader
	for _, l := range r.Shapes() {
		if l.FamilyName() == family {
			out = append(out, l)
		}
	}
	return out
}
