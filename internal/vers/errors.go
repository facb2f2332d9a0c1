package vers

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

// Sentinel errors for the migration taxonomy. The typed errors below match
// them with errors.Is:
//
//	if errors.Is(err, vers.ErrMigrationMissing) {
//	    // the document exists but cannot be read at this version
//	}
var (
	// ErrMigrationMissing is matched by *MigrationMissingError.
	ErrMigrationMissing = errors.New("migration missing")

	// ErrUpgradeDataMissing is matched by *UpgradeDataMissingError.
	ErrUpgradeDataMissing = errors.New("upgrade data missing")

	// ErrDowngradeDataMissing is matched by *DowngradeDataMissingError.
	ErrDowngradeDataMissing = errors.New("downgrade data missing")

	// ErrDecodeCoercion is matched by *DecodeCoercionError.
	ErrDecodeCoercion = errors.New("decode coercion failed")

	// ErrBagCollision is returned by Encode when a catch-all entry has the
	// name of a declared or reserved field. It means a rule failed to
	// consume data it should have.
	ErrBagCollision = errors.New("catch-all entry collides with declared field")

	// ErrDuplicateShape is returned when a registry already holds a shape
	// with the same name.
	ErrDuplicateShape = errors.New("shape already registered")

	// ErrUnknownShape is returned when a registry lookup by name fails.
	ErrUnknownShape = errors.New("unknown shape")
)

// MigrationMissingError reports that no rule or bridge moves Shape off
// Version towards the target.
type MigrationMissingError struct {
	Shape   string
	Version int
}

func (e *MigrationMissingError) Error() string {
	return fmt.Sprintf("no migration defined for Model:%s Version:%d", e.Shape, e.Version)
}

func (e *MigrationMissingError) Is(target error) bool {
	return target == ErrMigrationMissing
}

// UpgradeDataMissingError reports that an upgrade rule needed a legacy field
// that was not in the catch-all bag.
type UpgradeDataMissingError struct {
	Shape   string
	Version int
	Field   string
}

func (e *UpgradeDataMissingError) Error() string {
	return fmt.Sprintf("upgrade of %s from version %d failed: %s does not exist", e.Shape, e.Version, e.Field)
}

func (e *UpgradeDataMissingError) Is(target error) bool {
	return target == ErrUpgradeDataMissing
}

// DowngradeDataMissingError reports that a downgrade rule could not
// reconstruct a legacy field.
type DowngradeDataMissingError struct {
	Shape   string
	Version int
	Field   string
}

func (e *DowngradeDataMissingError) Error() string {
	return fmt.Sprintf("downgrade of %s from version %d failed: %s does not exist", e.Shape, e.Version, e.Field)
}

func (e *DowngradeDataMissingError) Is(target error) bool {
	return target == ErrDowngradeDataMissing
}

// DecodeCoercionError reports a stored value that does not fit its declared
// field type.
type DecodeCoercionError struct {
	Field    string
	Expected string
	Got      bson.Type
}

func (e *DecodeCoercionError) Error() string {
	return fmt.Sprintf("cannot decode field %s as %s (stored as %s)", e.Field, e.Expected, e.Got)
}

func (e *DecodeCoercionError) Is(target error) bool {
	return target == ErrDecodeCoercion
}

// IsMigrationFailure reports whether err means the document was found but
// could not be read at the requested version, including a stored
// schemaVersion that is not a valid version. Store failures are never
// migration failures.
func IsMigrationFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrMigrationMissing) ||
		errors.Is(err, ErrUpgradeDataMissing) ||
		errors.Is(err, ErrDowngradeDataMissing) ||
		errors.Is(err, ErrDecodeCoercion) ||
		errors.Is(err, doc.ErrBadVersion)
}
