package testmodel

import (
	"time"

	"github.com/cedd82/mongoSchemaVersion/internal/vers"
)

// Shape names.
const (
	NameV1 = "TestModelV1"
	NameV2 = "TestModelV2"
	NameV3 = "TestModelV3"
	NameV4 = "TestModelV4"
	NameV5 = "TestModelV5"
)

// Stored field names.
const (
	FieldBoolPropertyToRemove = "boolPropertyToRemove"
	FieldTestDate             = "testDate"
	FieldFullName             = "fullName"
	FieldFirstName            = "firstName"
	FieldLastName             = "lastName"
	FieldCounter              = "counter"
	FieldEmail                = "email"
)

// ShapeV1 is the floor of the family.
var ShapeV1 = &vers.Shape[*V1]{
	Name:   NameV1,
	Family: Family,
	Home:   1,
	New:    func() *V1 { return &V1{} },
	Fields: []vers.Field[*V1]{
		vers.Prop(FieldBoolPropertyToRemove, func(m *V1) *bool { return &m.BoolPropertyToRemove }, vers.Bool),
		vers.Prop(FieldTestDate, func(m *V1) **time.Time { return &m.TestDate }, vers.Timestamp),
	},
}

var ShapeV2 = &vers.Shape[*V2]{
	Name:   NameV2,
	Family: Family,
	Home:   2,
	New:    func() *V2 { return &V2{} },
	Fields: []vers.Field[*V2]{
		vers.Prop(FieldTestDate, func(m *V2) **time.Time { return &m.TestDate }, vers.Timestamp),
		vers.Prop(FieldFullName, func(m *V2) *string { return &m.FullName }, vers.String),
	},
	Upgrades: map[int]vers.Rule[*V2]{
		1: dropBoolProperty[*V2],
	},
	Downgrades: map[int]vers.Rule[*V2]{
		5: vers.Bridge[*V2],
		4: vers.Bridge[*V2],
		3: joinNames,
	},
}

var ShapeV3 = &vers.Shape[*V3]{
	Name:   NameV3,
	Family: Family,
	Home:   3,
	New:    func() *V3 { return &V3{} },
	Fields: []vers.Field[*V3]{
		vers.Prop(FieldTestDate, func(m *V3) **time.Time { return &m.TestDate }, vers.Timestamp),
		vers.Prop(FieldFirstName, func(m *V3) *string { return &m.FirstName }, vers.String),
		vers.Prop(FieldLastName, func(m *V3) *string { return &m.LastName }, vers.String),
		// Version 4 writes the counter as a string; reading it back is the
		// codec's job.
		vers.Prop(FieldCounter, func(m *V3) *int32 { return &m.Counter }, vers.IntFromString),
	},
	Upgrades: map[int]vers.Rule[*V3]{
		1: dropBoolProperty[*V3],
		2: splitFullName[*V3],
	},
	Downgrades: map[int]vers.Rule[*V3]{
		5: vers.Bridge[*V3],
		4: vers.Bridge[*V3],
	},
}

var ShapeV4 = &vers.Shape[*V4]{
	Name:   NameV4,
	Family: Family,
	Home:   4,
	New:    func() *V4 { return &V4{} },
	Fields: []vers.Field[*V4]{
		vers.Prop(FieldTestDate, func(m *V4) **time.Time { return &m.TestDate }, vers.Timestamp),
		vers.Prop(FieldFirstName, func(m *V4) *string { return &m.FirstName }, vers.String),
		vers.Prop(FieldLastName, func(m *V4) *string { return &m.LastName }, vers.String),
		vers.Prop(FieldCounter, func(m *V4) *string { return &m.Counter }, vers.StringFromInt),
	},
	Upgrades: map[int]vers.Rule[*V4]{
		1: dropBoolProperty[*V4],
		2: splitFullName[*V4],
		3: counterToString[*V4],
	},
	Downgrades: map[int]vers.Rule[*V4]{
		// email is unknown to v4 and stays in the catch-all.
		5: vers.Bridge[*V4],
	},
}

var ShapeV5 = &vers.Shape[*V5]{
	Name:   NameV5,
	Family: Family,
	Home:   5,
	New:    func() *V5 { return &V5{} },
	Fields: []vers.Field[*V5]{
		vers.Prop(FieldTestDate, func(m *V5) **time.Time { return &m.TestDate }, vers.Timestamp),
		vers.Prop(FieldFirstName, func(m *V5) *string { return &m.FirstName }, vers.String),
		vers.Prop(FieldLastName, func(m *V5) *string { return &m.LastName }, vers.String),
		vers.Prop(FieldCounter, func(m *V5) *string { return &m.Counter }, vers.StringFromInt),
		vers.Prop(FieldEmail, func(m *V5) *string { return &m.Email }, vers.String),
	},
	Upgrades: map[int]vers.Rule[*V5]{
		1: dropBoolProperty[*V5],
		2: splitFullName[*V5],
		3: counterToString[*V5],
	},
}
