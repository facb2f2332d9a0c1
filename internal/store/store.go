// Package store defines the repository gateway: the narrow interface the
// typed repository uses to read and write raw documents, whatever holds them.
//
// Three gateways live in subpackages:
//   - memstore: process memory, for tests and the default CLI session
//   - sqlite: an embedded SQLite file (WAL, busy timeout)
//   - mongostore: a MongoDB collection
//
// Every gateway stores the full BSON body, so each value kind round-trips.
// Writes replace by id; the last write wins.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

var (
	// ErrNotFound is returned by Fetch when no document has the id.
	ErrNotFound = errors.New("document not found")

	// ErrMissingID is returned by Upsert for a document without a string _id.
	ErrMissingID = doc.ErrMissingID
)

// Gateway reads and writes raw documents keyed by _id.
type Gateway interface {
	// Fetch returns the stored document with the given id.
	Fetch(ctx context.Context, id string) (doc.Raw, error)

	// Upsert inserts raw or replaces the stored document with the same id.
	Upsert(ctx context.Context, raw doc.Raw) error

	// Reset removes every document.
	Reset(ctx context.Context) error

	// Stats counts stored documents.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// Stats is a summary of the stored documents.
type Stats struct {
	Documents int
	// ByVersion counts documents per stored schema version. Documents with
	// no version field count as version 1.
	ByVersion map[int]int
}

// NotFound wraps ErrNotFound with the id that was looked up.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
