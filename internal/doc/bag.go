package doc

import (
	"maps"
	"slices"
)

// Bag is the catch-all store for fields a shape does not declare. Rules
// consume entries on the way up and put them back on the way down.
type Bag map[string]Value

// Lookup returns the entry for name.
func (b Bag) Lookup(name string) (Value, bool) {
	v, ok := b[name]
	return v, ok
}

// LookupString returns the entry for name if it holds a string.
func (b Bag) LookupString(name string) (string, bool) {
	v, ok := b[name]
	if !ok {
		return "", false
	}
	return v.StringValueOK()
}

// Take returns the entry for name and removes it from the bag.
func (b Bag) Take(name string) (Value, bool) {
	v, ok := b[name]
	if ok {
		delete(b, name)
	}
	return v, ok
}

// Put stores v under name, replacing any previous entry.
func (b Bag) Put(name string, v Value) {
	b[name] = v
}

// Delete removes the named entries. Missing names are ignored.
func (b Bag) Delete(names ...string) {
	for _, n := range names {
		delete(b, n)
	}
}

// Names returns the entry names in sorted order.
func (b Bag) Names() []string {
	return slices.Sorted(maps.Keys(b))
}

// Clone returns a deep copy of the bag.
func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = cloneValue(v)
	}
	return out
}
