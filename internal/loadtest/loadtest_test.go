package loadtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cedd82/mongoSchemaVersion/internal/repo"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
	"github.com/cedd82/mongoSchemaVersion/internal/store/memstore"
	"github.com/cedd82/mongoSchemaVersion/internal/store/sqlite"
	"github.com/cedd82/mongoSchemaVersion/internal/testmodel"
)

var allVersions = []int{1, 2, 3, 4, 5}

// Version 1 documents carry no fullName, so they cannot be read above
// version 2.
var readableVersions = []int{2, 3, 4, 5}

func populated(t *testing.T, gw store.Gateway, count int, versions []int) *Fixture {
	t.Helper()
	f, err := Populate(context.Background(), gw, count, versions)
	if err != nil {
		t.Fatalf("Populate() failed: %v", err)
	}
	return f
}

func TestPopulate(t *testing.T) {
	gw := memstore.New()
	f := populated(t, gw, 12, allVersions)

	if len(f.IDs) != 12 {
		t.Errorf("got %d ids, want 12", len(f.IDs))
	}
	want := map[int]int{1: 3, 2: 3, 3: 2, 4: 2, 5: 2}
	if diff := cmp.Diff(want, f.ByVersion); diff != "" {
		t.Errorf("ByVersion mismatch (-want +got):\n%s", diff)
	}

	stats, err := gw.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if diff := cmp.Diff(want, stats.ByVersion); diff != "" {
		t.Errorf("stored versions mismatch (-want +got):\n%s", diff)
	}
}

func TestPopulate_Invalid(t *testing.T) {
	ctx := context.Background()
	if _, err := Populate(ctx, memstore.New(), 0, allVersions); err == nil {
		t.Error("Populate() accepted a zero count")
	}
	if _, err := Populate(ctx, memstore.New(), 1, nil); err == nil {
		t.Error("Populate() accepted no versions")
	}
	if _, err := Populate(ctx, memstore.New(), 1, []int{9}); err == nil {
		t.Error("Populate() accepted an unknown version")
	}
}

func TestGeneratedDocumentsLoadAtHome(t *testing.T) {
	gw := memstore.New()
	f := populated(t, gw, 10, readableVersions)
	r := repo.New(gw, repo.DefaultConfig())

	for _, id := range f.IDs {
		m, err := repo.Load(context.Background(), r, testmodel.ShapeV5, id, 5)
		if err != nil {
			t.Fatalf("Load(%s) failed: %v", id, err)
		}
		if m.FirstName == "" || m.LastName == "" {
			t.Errorf("%s: names not migrated: %+v", id, m)
		}
	}
}

func TestRunConcurrentLoads(t *testing.T) {
	gw := memstore.New()
	f := populated(t, gw, 50, readableVersions)
	r := repo.New(gw, repo.DefaultConfig())

	stats, err := RunConcurrentLoads(context.Background(), r, testmodel.ShapeV5, f.IDs, Options{
		Workers:        8,
		LoadsPerWorker: 20,
		Target:         5,
		Seed:           42,
	})
	if err != nil {
		t.Fatalf("RunConcurrentLoads() failed: %v", err)
	}

	if stats.TotalLoads != 160 {
		t.Errorf("TotalLoads = %d, want 160", stats.TotalLoads)
	}
	if stats.Failed != 0 {
		t.Errorf("Failed = %d, want 0", stats.Failed)
	}
	// Three quarters of the documents are below version 5.
	if stats.Migrated == 0 || stats.Migrated == stats.TotalLoads {
		t.Errorf("Migrated = %d of %d, want some but not all", stats.Migrated, stats.TotalLoads)
	}
	if stats.Min > stats.P50 || stats.P50 > stats.P99 || stats.P99 > stats.Max {
		t.Errorf("percentiles out of order: %+v", stats)
	}
}

// The floor shape can read only its own version.
func TestRunConcurrentLoads_CountsFailures(t *testing.T) {
	gw := memstore.New()
	f := populated(t, gw, 10, allVersions)
	r := repo.New(gw, repo.DefaultConfig())

	stats, err := RunConcurrentLoads(context.Background(), r, testmodel.ShapeV1, f.IDs, Options{
		Workers:        2,
		LoadsPerWorker: 25,
		Target:         1,
	})
	if err != nil {
		t.Fatalf("RunConcurrentLoads() failed: %v", err)
	}
	if stats.Failed == 0 {
		t.Error("Failed = 0, want floor shape failures")
	}
	if stats.Migrated != 0 {
		t.Errorf("Migrated = %d, want 0", stats.Migrated)
	}
}

func TestRunConcurrentLoads_Invalid(t *testing.T) {
	r := repo.New(memstore.New(), repo.DefaultConfig())
	ctx := context.Background()

	if _, err := RunConcurrentLoads(ctx, r, testmodel.ShapeV5, nil, Options{Workers: 1, LoadsPerWorker: 1, Target: 5}); err == nil {
		t.Error("RunConcurrentLoads() accepted no ids")
	}
	if _, err := RunConcurrentLoads(ctx, r, testmodel.ShapeV5, []string{"x"}, Options{Target: 5}); err == nil {
		t.Error("RunConcurrentLoads() accepted zero workers")
	}
}

func TestRunConcurrentLoads_MissingDocumentStops(t *testing.T) {
	r := repo.New(memstore.New(), repo.DefaultConfig())
	_, err := RunConcurrentLoads(context.Background(), r, testmodel.ShapeV5, []string{"missing"}, Options{
		Workers:        2,
		LoadsPerWorker: 2,
		Target:         5,
	})
	if !store.IsNotFound(err) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestVerifyConcurrentSaves_SQLite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrent save test in short mode")
	}

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "bench.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	f := populated(t, db, 40, readableVersions)
	r := repo.New(db, repo.DefaultConfig())

	if err := VerifyConcurrentSaves(context.Background(), r, testmodel.ShapeV5, f.IDs, 5, 8, 300*time.Millisecond); err != nil {
		t.Fatalf("VerifyConcurrentSaves() failed: %v", err)
	}
}

func TestVerifyConcurrentSaves_Downgrade(t *testing.T) {
	gw := memstore.New()
	f := populated(t, gw, 20, allVersions)
	r := repo.New(gw, repo.DefaultConfig())

	// V2 can walk down from every version above it; version 1 documents
	// are upgraded.
	if err := VerifyConcurrentSaves(context.Background(), r, testmodel.ShapeV2, f.IDs, 2, 4, 200*time.Millisecond); err != nil {
		t.Fatalf("VerifyConcurrentSaves() failed: %v", err)
	}
}

func TestVerifyConcurrentSaves_Invalid(t *testing.T) {
	r := repo.New(memstore.New(), repo.DefaultConfig())
	ctx := context.Background()

	if err := VerifyConcurrentSaves(ctx, r, testmodel.ShapeV5, nil, 5, 2, time.Millisecond); err == nil {
		t.Error("VerifyConcurrentSaves() accepted no ids")
	}
	if err := VerifyConcurrentSaves(ctx, r, testmodel.ShapeV5, []string{"x"}, 5, 0, time.Millisecond); err == nil {
		t.Error("VerifyConcurrentSaves() accepted zero workers")
	}
	if err := VerifyConcurrentSaves(ctx, r, testmodel.ShapeV5, []string{"x"}, 5, 1, 0); err == nil {
		t.Error("VerifyConcurrentSaves() accepted a zero duration")
	}
}

func TestComputeLatencyStats(t *testing.T) {
	var durations []time.Duration
	for i := 100; i >= 1; i-- {
		durations = append(durations, time.Duration(i)*time.Millisecond)
	}

	stats := computeLatencyStats(durations)

	if stats.Min != time.Millisecond || stats.Max != 100*time.Millisecond {
		t.Errorf("Min/Max = %v/%v", stats.Min, stats.Max)
	}
	if stats.P50 != 51*time.Millisecond {
		t.Errorf("P50 = %v, want 51ms", stats.P50)
	}
	if stats.P99 != 100*time.Millisecond {
		t.Errorf("P99 = %v, want 100ms", stats.P99)
	}
	if stats.Mean != 50500*time.Microsecond {
		t.Errorf("Mean = %v, want 50.5ms", stats.Mean)
	}
	if durations[0] != 100*time.Millisecond {
		t.Error("computeLatencyStats() reordered its input")
	}

	if empty := computeLatencyStats(nil); empty.TotalLoads != 0 {
		t.Errorf("empty TotalLoads = %d", empty.TotalLoads)
	}
}
