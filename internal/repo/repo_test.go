package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
	"github.com/cedd82/mongoSchemaVersion/internal/store/memstore"
	"github.com/cedd82/mongoSchemaVersion/internal/testmodel"
	"github.com/cedd82/mongoSchemaVersion/internal/vers"
)

func newTestRepo(t *testing.T) (*Repository, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return New(memstore.New(), Config{Logger: zap.New(core)}), logs
}

func seed(t *testing.T, r *Repository, raw doc.Raw) {
	t.Helper()
	if err := r.Gateway().Upsert(context.Background(), raw); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
}

func TestLoad_UpgradeThenSave(t *testing.T) {
	r, logs := newTestRepo(t)
	ctx := context.Background()
	seed(t, r, doc.Raw{
		doc.IDField:      doc.String("t1"),
		doc.VersionField: doc.Int32(2),
		"fullName":       doc.String("Donnie Darko"),
		"testDate":       doc.Time(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)),
	})

	m, err := Load(ctx, r, testmodel.ShapeV3, "t1", 3)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !m.Upgraded || m.FirstName != "Donnie" {
		t.Errorf("Load() = %+v, want upgraded with FirstName Donnie", m)
	}
	if n := logs.FilterMessage("document migrated").Len(); n != 1 {
		t.Errorf("migration log entries = %d, want 1", n)
	}

	// Loading does not write.
	stored, err := r.Gateway().Fetch(ctx, "t1")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if v, _ := stored.Version(); v != 2 {
		t.Errorf("stored version after Load() = %d, want 2", v)
	}

	m.Counter = 5
	if err := Save(ctx, r, testmodel.ShapeV3, m); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	again, err := Load(ctx, r, testmodel.ShapeV3, "t1", 3)
	if err != nil {
		t.Fatalf("second Load() failed: %v", err)
	}
	if again.Upgraded || again.Downgraded {
		t.Error("flags set when reading a document at its stored version")
	}
	if again.Counter != 5 || again.LastName != "Darko" {
		t.Errorf("second Load() = %+v", again)
	}
}

func TestLoad_NotFound(t *testing.T) {
	r, _ := newTestRepo(t)

	_, err := Load(context.Background(), r, testmodel.ShapeV2, "nope", 2)
	if !store.IsNotFound(err) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
	if vers.IsMigrationFailure(err) {
		t.Error("not-found error classified as a migration failure")
	}
}

func TestLoad_MigrationFailure(t *testing.T) {
	r, logs := newTestRepo(t)
	seed(t, r, doc.Raw{doc.IDField: doc.String("t1"), doc.VersionField: doc.Int32(3)})

	_, err := Load(context.Background(), r, testmodel.ShapeV1, "t1", 5)

	var missing *vers.MigrationMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("Load() error = %v, want MigrationMissingError", err)
	}
	if missing.Shape != testmodel.NameV1 || missing.Version != 3 {
		t.Errorf("error = %+v", missing)
	}
	if store.IsNotFound(err) {
		t.Error("migration failure classified as not found")
	}
	if logs.FilterMessage("migration failed").Len() != 1 {
		t.Error("migration failure not logged")
	}
}

func TestLoad_CoercionFailure(t *testing.T) {
	r, _ := newTestRepo(t)
	seed(t, r, doc.Raw{
		doc.IDField:      doc.String("t1"),
		doc.VersionField: doc.Int32(2),
		"fullName":       doc.Int32(7),
	})

	_, err := Load(context.Background(), r, testmodel.ShapeV2, "t1", 2)
	if !errors.Is(err, vers.ErrDecodeCoercion) {
		t.Errorf("Load() error = %v, want ErrDecodeCoercion", err)
	}
}

// corruptGateway serves documents as written by another client, bypassing
// the version checks every gateway applies on Upsert.
type corruptGateway struct {
	*memstore.Store
	docs map[string]doc.Raw
}

func (g *corruptGateway) Fetch(ctx context.Context, id string) (doc.Raw, error) {
	if raw, ok := g.docs[id]; ok {
		return raw.Clone(), nil
	}
	return g.Store.Fetch(ctx, id)
}

func TestLoad_InvalidStoredVersion(t *testing.T) {
	tests := []struct {
		name    string
		version doc.Value
	}{
		{name: "string", version: doc.String("two")},
		{name: "zero", version: doc.Int32(0)},
		{name: "negative", version: doc.Int32(-3)},
		{name: "large negative", version: doc.Int64(-(1 << 40))},
		{name: "above int32", version: doc.Int64(1 << 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			gw := &corruptGateway{Store: memstore.New(), docs: map[string]doc.Raw{
				"t1": {doc.IDField: doc.String("t1"), doc.VersionField: tt.version, "fullName": doc.String("Donnie Darko")},
			}}
			r := New(gw, Config{Logger: zap.New(core)})

			_, err := Load(context.Background(), r, testmodel.ShapeV2, "t1", 2)
			if !errors.Is(err, doc.ErrBadVersion) {
				t.Fatalf("Load() error = %v, want ErrBadVersion", err)
			}
			if !vers.IsMigrationFailure(err) {
				t.Error("invalid version not classified as a migration failure")
			}
			if store.IsNotFound(err) {
				t.Error("invalid version classified as not found")
			}
			if logs.FilterMessage("stored document has an invalid schemaVersion").Len() != 1 {
				t.Error("invalid version not logged")
			}

			if _, err := r.LoadAny(context.Background(), testmodel.ShapeV5, "t1", 5); !vers.IsMigrationFailure(err) {
				t.Errorf("LoadAny() error = %v, want a migration failure", err)
			}
		})
	}
}

func TestLoadAnySaveAny(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	reg := vers.NewRegistry()
	if err := testmodel.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	v4, err := reg.Lookup(testmodel.NameV4)
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}

	seed(t, r, doc.Raw{
		doc.IDField:      doc.String("t1"),
		doc.VersionField: doc.Int32(3),
		"firstName":      doc.String("Donnie"),
		"lastName":       doc.String("Darko"),
		"counter":        doc.Int32(123),
	})

	m, err := r.LoadAny(ctx, v4, "t1", 4)
	if err != nil {
		t.Fatalf("LoadAny() failed: %v", err)
	}
	if got := m.(*testmodel.V4).Counter; got != "123" {
		t.Errorf("Counter = %q, want 123", got)
	}
	if err := r.SaveAny(ctx, v4, m); err != nil {
		t.Fatalf("SaveAny() failed: %v", err)
	}

	stored, err := r.Gateway().Fetch(ctx, "t1")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if s, ok := stored["counter"].StringValueOK(); !ok || s != "123" {
		t.Errorf("stored counter = %v, want string 123", stored["counter"])
	}
	if v, _ := stored.Version(); v != 4 {
		t.Errorf("stored version = %d, want 4", v)
	}
}

func TestReset(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	seed(t, r, doc.Raw{doc.IDField: doc.String("t1")})

	if err := r.Reset(ctx); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if _, err := r.Gateway().Fetch(ctx, "t1"); !store.IsNotFound(err) {
		t.Errorf("Fetch() after Reset() error = %v, want ErrNotFound", err)
	}
}
