// Package testmodel is the TestModel shape family: five generations of one
// document type, each readable at any version the rules can reach.
//
//	v1  boolPropertyToRemove, testDate
//	v2  testDate, fullName               (boolPropertyToRemove dropped)
//	v3  testDate, firstName, lastName, counter:int32
//	v4  counter stored as a string
//	v5  adds email; no field changes from v4, so 4->5 is bridged
package testmodel

import (
	"time"

	"github.com/cedd82/mongoSchemaVersion/internal/vers"
)

// Family is the shape family name used for target version lookup.
const Family = "testmodel"

// V1 is the original shape. It has no rules: it only reads version 1.
type V1 struct {
	vers.Meta
	BoolPropertyToRemove bool
	TestDate             *time.Time
}

// V2 replaced the boolean with a full name.
type V2 struct {
	vers.Meta
	TestDate *time.Time
	FullName string
}

// V3 split the full name and added a counter.
type V3 struct {
	vers.Meta
	TestDate  *time.Time
	FirstName string
	LastName  string
	Counter   int32
}

// V4 stores the counter as a string.
type V4 struct {
	vers.Meta
	TestDate  *time.Time
	FirstName string
	LastName  string
	Counter   string
}

// V5 adds an optional email address.
type V5 struct {
	vers.Meta
	TestDate  *time.Time
	FirstName string
	LastName  string
	Counter   string
	Email     string
}

// Register adds every TestModel shape to r.
func Register(r *vers.Registry) error {
	for _, l := range []vers.Loader{ShapeV1, ShapeV2, ShapeV3, ShapeV4, ShapeV5} {
		if err := r.Register(l); err != nil {
			return err
		}
	}
	return nil
}
