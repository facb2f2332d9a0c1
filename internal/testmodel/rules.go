package testmodel

import (
	"strings"

	"github.com/cedd82/mongoSchemaVersion/internal/vers"
)

// named is implemented by the shapes that carry first and last names.
type named interface {
	vers.Model
	setNames(first, last string)
}

func (m *V3) setNames(first, last string) { m.FirstName, m.LastName = first, last }
func (m *V4) setNames(first, last string) { m.FirstName, m.LastName = first, last }
func (m *V5) setNames(first, last string) { m.FirstName, m.LastName = first, last }

// 1 -> 2: the boolean was retired without replacement.
func dropBoolProperty[M vers.Model](m M) error {
	m.Versioning().CatchAll.Delete(FieldBoolPropertyToRemove)
	return nil
}

// 2 -> 3: fullName is split on its first space. A single word becomes the
// first name.
func splitFullName[M named](m M) error {
	meta := m.Versioning()
	full, ok := meta.CatchAll.LookupString(FieldFullName)
	if !ok {
		return &vers.UpgradeDataMissingError{Shape: shapeName(m), Version: meta.SchemaVersion, Field: FieldFullName}
	}
	first, last, _ := strings.Cut(full, " ")
	m.setNames(first, last)
	meta.CatchAll.Delete(FieldFullName)
	return nil
}

// 3 -> 4: counter changed from int32 to string. The field's coercion has
// already converted it during decode.
func counterToString[M vers.Model](M) error {
	return nil
}

// 3 -> 2: the names are joined back into fullName. counter has no v2
// equivalent and is dropped for good.
func joinNames(m *V2) error {
	first, ok := m.CatchAll.LookupString(FieldFirstName)
	if !ok {
		return &vers.DowngradeDataMissingError{Shape: NameV2, Version: m.SchemaVersion, Field: FieldFirstName}
	}
	last, ok := m.CatchAll.LookupString(FieldLastName)
	if !ok {
		return &vers.DowngradeDataMissingError{Shape: NameV2, Version: m.SchemaVersion, Field: FieldLastName}
	}
	m.FullName = first + " " + last
	m.CatchAll.Delete(FieldFirstName, FieldLastName, FieldCounter)
	return nil
}

func shapeName(m vers.Model) string {
	switch m.(type) {
	case *V3:
		return NameV3
	case *V4:
		return NameV4
	case *V5:
		return NameV5
	default:
		return "TestModel"
	}
}
