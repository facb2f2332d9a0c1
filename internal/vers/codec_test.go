package vers

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

type event struct {
	Meta
	Title   string
	At      *time.Time
	Counter string
	Score   float64
	Active  bool
}

func eventShape() *Shape[*event] {
	return &Shape[*event]{
		Name: "Event",
		Home: 1,
		New:  func() *event { return &event{} },
		Fields: []Field[*event]{
			Prop("title", func(e *event) *string { return &e.Title }, String),
			Prop("at", func(e *event) **time.Time { return &e.At }, Timestamp),
			Prop("counter", func(e *event) *string { return &e.Counter }, StringFromInt),
			Prop("score", func(e *event) *float64 { return &e.Score }, Double),
			Prop("active", func(e *event) *bool { return &e.Active }, Bool),
		},
	}
}

func TestDecode_PartitionsDeclaredAndUnknown(t *testing.T) {
	at := time.Date(2022, 1, 1, 10, 30, 30, 0, time.UTC)
	raw := doc.Raw{
		doc.IDField:      doc.String("e1"),
		doc.VersionField: doc.Int32(1),
		"title":          doc.String("launch"),
		"at":             doc.Time(at),
		"counter":        doc.Int32(123),
		"score":          doc.Int32(7),
		"active":         doc.Bool(true),
		"legacy":         doc.List(doc.String("x")),
	}

	e, err := eventShape().Decode(raw)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if e.ID != "e1" || e.SchemaVersion != 1 {
		t.Errorf("meta = (%q, %d), want (e1, 1)", e.ID, e.SchemaVersion)
	}
	if e.Title != "launch" || e.Counter != "123" || e.Score != 7 || !e.Active {
		t.Errorf("typed fields = %+v", e)
	}
	if e.At == nil || !e.At.Equal(at) {
		t.Errorf("At = %v, want %v", e.At, at)
	}
	if diff := cmp.Diff([]string{"legacy"}, e.CatchAll.Names()); diff != "" {
		t.Errorf("catch-all mismatch (-want +got):\n%s", diff)
	}

	// The bag must not alias the raw document.
	raw["legacy"].Value[0] = 0
	if e.CatchAll["legacy"].Value[0] == 0 {
		t.Error("catch-all shares bytes with the raw document")
	}
}

func TestDecode_MissingAndNullFields(t *testing.T) {
	raw := doc.Raw{
		doc.IDField: doc.String("e1"),
		"title":     doc.Null(),
		"at":        doc.Null(),
	}

	e, err := eventShape().Decode(raw)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if e.SchemaVersion != doc.DefaultVersion {
		t.Errorf("SchemaVersion = %d, want %d", e.SchemaVersion, doc.DefaultVersion)
	}
	if e.Title != "" || e.At != nil {
		t.Errorf("null fields decoded to %q, %v", e.Title, e.At)
	}
	if e.CatchAll == nil {
		t.Error("CatchAll is nil")
	}
}

func TestDecode_CoercionError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    doc.Value
		expected string
	}{
		{name: "int for string", field: "title", value: doc.Int32(1), expected: "string"},
		{name: "string for timestamp", field: "at", value: doc.String("yesterday"), expected: "timestamp"},
		{name: "bool for number", field: "score", value: doc.Bool(true), expected: "double"},
		{name: "null for bool", field: "active", value: doc.Null(), expected: "bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := doc.Raw{doc.IDField: doc.String("e1"), tt.field: tt.value}
			_, err := eventShape().Decode(raw)

			var ce *DecodeCoercionError
			if !errors.As(err, &ce) {
				t.Fatalf("Decode() error = %v, want DecodeCoercionError", err)
			}
			if ce.Field != tt.field || ce.Expected != tt.expected || ce.Got != tt.value.Type {
				t.Errorf("error = %+v", ce)
			}
			if !errors.Is(err, ErrDecodeCoercion) {
				t.Error("errors.Is(err, ErrDecodeCoercion) = false")
			}
		})
	}
}

func TestDecode_RejectsBadIdentity(t *testing.T) {
	if _, err := eventShape().Decode(doc.Raw{"title": doc.String("x")}); !errors.Is(err, doc.ErrMissingID) {
		t.Errorf("Decode() without _id error = %v, want ErrMissingID", err)
	}
	raw := doc.Raw{doc.IDField: doc.String("e1"), doc.VersionField: doc.String("two")}
	if _, err := eventShape().Decode(raw); !errors.Is(err, doc.ErrBadVersion) {
		t.Errorf("Decode() with string version error = %v, want ErrBadVersion", err)
	}
	for _, v := range []doc.Value{doc.Int32(0), doc.Int32(-3), doc.Int64(-(1 << 40)), doc.Int64(1 << 40)} {
		raw := doc.Raw{doc.IDField: doc.String("e1"), doc.VersionField: v}
		if _, err := eventShape().Load(raw, 1); !errors.Is(err, doc.ErrBadVersion) {
			t.Errorf("Load() with version %v error = %v, want ErrBadVersion", v, err)
		}
	}
}

func TestEncode_RejectsInvalidVersion(t *testing.T) {
	s := eventShape()
	e := s.Create("e1")
	e.SchemaVersion = 0
	if _, err := s.Encode(e); !errors.Is(err, doc.ErrBadVersion) {
		t.Errorf("Encode() at version 0 error = %v, want ErrBadVersion", err)
	}
}

func TestEncode_WritesDeclaredThenCatchAll(t *testing.T) {
	s := eventShape()
	e := s.Create("e1")
	e.Title = "launch"
	e.Counter = "5"
	e.CatchAll.Put("legacy", doc.Int64(99))

	raw, err := s.Encode(e)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	want := []string{doc.IDField, doc.VersionField, "active", "at", "counter", "legacy", "score", "title"}
	if diff := cmp.Diff(want, raw.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if v, _ := raw.Version(); v != 1 {
		t.Errorf("Version() = %d, want 1", v)
	}
	if raw["at"].Type != bson.TypeNull {
		t.Errorf("nil timestamp encoded as %s, want null", raw["at"].Type)
	}
	if raw["legacy"].Type != bson.TypeInt64 {
		t.Errorf("legacy encoded as %s, want int64", raw["legacy"].Type)
	}
}

func TestEncode_CatchAllCollision(t *testing.T) {
	s := eventShape()
	for _, name := range []string{"title", doc.VersionField} {
		e := s.Create("e1")
		e.CatchAll.Put(name, doc.String("stale"))

		if _, err := s.Encode(e); !errors.Is(err, ErrBagCollision) {
			t.Errorf("Encode() with %s in catch-all error = %v, want ErrBagCollision", name, err)
		}
	}
}

func TestDecodeEncode_RoundTrip(t *testing.T) {
	s := eventShape()
	at := time.Date(2022, 1, 1, 10, 30, 30, 0, time.UTC)
	e := s.Create("e1")
	e.Title = "launch"
	e.At = &at
	e.Counter = "42"
	e.Score = 2.5
	e.Active = true
	e.CatchAll.Put("nested", doc.Map(map[string]doc.Value{"k": doc.List(doc.Int32(1))}))

	raw, err := s.Encode(e)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	data, err := raw.Marshal()
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	stored, err := doc.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	got, err := s.Decode(stored)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	opts := cmp.Comparer(func(a, b doc.Value) bool { return a.Equal(b) })
	if diff := cmp.Diff(e, got, opts); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestIntFromString(t *testing.T) {
	tests := []struct {
		in   doc.Value
		want int32
		ok   bool
	}{
		{in: doc.Int32(5), want: 5, ok: true},
		{in: doc.Int64(6), want: 6, ok: true},
		{in: doc.String("123"), want: 123, ok: true},
		{in: doc.String("abc"), ok: false},
		{in: doc.Int64(1 << 40), ok: false},
	}
	for _, tt := range tests {
		got, ok := IntFromString.Decode(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("IntFromString.Decode(%s) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
