package vers

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	w := widgetShape(map[string]int{})
	e := eventShape()
	e.Family = "event"

	for _, l := range []Loader{w, e} {
		if err := r.Register(l); err != nil {
			t.Fatalf("Register(%s) failed: %v", l.ShapeName(), err)
		}
	}
	if err := r.Register(w); !errors.Is(err, ErrDuplicateShape) {
		t.Errorf("second Register() error = %v, want ErrDuplicateShape", err)
	}

	got, err := r.Lookup("Widget")
	if err != nil {
		t.Fatalf("Lookup(Widget) failed: %v", err)
	}
	if got.HomeVersion() != 3 {
		t.Errorf("HomeVersion() = %d, want 3", got.HomeVersion())
	}
	if diff := cmp.Diff([]int{1}, got.UpgradeVersions()); diff != "" {
		t.Errorf("UpgradeVersions() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4}, got.DowngradeVersions()); diff != "" {
		t.Errorf("DowngradeVersions() mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.Lookup("Nope"); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("Lookup(Nope) error = %v, want ErrUnknownShape", err)
	}

	var names []string
	for _, l := range r.Shapes() {
		names = append(names, l.ShapeName())
	}
	if diff := cmp.Diff([]string{"Event", "Widget"}, names); diff != "" {
		t.Errorf("Shapes() mismatch (-want +got):\n%s", diff)
	}
	if fam := r.Family("widget"); len(fam) != 1 || fam[0].ShapeName() != "Widget" {
		t.Errorf("Family(widget) = %v", fam)
	}
}

func TestLoader_LoadAndEncode(t *testing.T) {
	var l Loader = widgetShape(map[string]int{})

	m, err := l.LoadModel(doc.Raw{
		doc.IDField:      doc.String("w1"),
		doc.VersionField: doc.Int32(1),
		"oldLabel":       doc.String("gear"),
	}, 3)
	if err != nil {
		t.Fatalf("LoadModel() failed: %v", err)
	}
	if !m.Versioning().Upgraded {
		t.Error("Upgraded = false after loading a version 1 document")
	}

	raw, err := l.EncodeModel(m)
	if err != nil {
		t.Fatalf("EncodeModel() failed: %v", err)
	}
	if s, _ := raw["label"].StringValueOK(); s != "gear" {
		t.Errorf("label = %q, want gear", s)
	}
	if _, ok := raw["oldLabel"]; ok {
		t.Error("oldLabel written back after upgrade")
	}

	if _, err := l.EncodeModel(eventShape().Create("e1")); err == nil {
		t.Error("EncodeModel() accepted a model of another shape")
	}

	created := l.CreateModel("w2").Versioning()
	if created.ID != "w2" || created.SchemaVersion != 3 {
		t.Errorf("CreateModel() meta = %+v", created)
	}
}
