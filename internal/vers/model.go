package vers

import "github.com/cedd82/mongoSchemaVersion/internal/doc"

// Meta is the versioning state every model embeds.
type Meta struct {
	ID            string
	SchemaVersion int
	CatchAll      doc.Bag

	// Upgraded and Downgraded report whether the last Reconcile moved the
	// version in that direction. They are not persisted.
	Upgraded   bool
	Downgraded bool
}

// Versioning returns m. Embedding Meta makes a struct pointer a Model.
func (m *Meta) Versioning() *Meta {
	return m
}

// Model is a typed view of a stored document.
type Model interface {
	Versioning() *Meta
}
