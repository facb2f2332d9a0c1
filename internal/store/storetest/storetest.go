// Package storetest is a conformance suite run against every Gateway.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
)

// Opener returns an empty gateway. The suite closes it.
type Opener func(t *testing.T) store.Gateway

// Sample returns a document exercising every value kind.
func Sample(id string, version int32) doc.Raw {
	return doc.Raw{
		doc.IDField:      doc.String(id),
		doc.VersionField: doc.Int32(version),
		"name":           doc.String("Donnie Darko"),
		"small":          doc.Int32(7),
		"big":            doc.Int64(1 << 40),
		"ratio":          doc.Double(0.25),
		"flag":           doc.Bool(true),
		"missing":        doc.Null(),
		"when":           doc.Time(time.Date(2022, 1, 1, 10, 30, 30, 0, time.UTC)),
		"tags":           doc.List(doc.String("a"), doc.Int32(2)),
		"nested":         doc.Map(map[string]doc.Value{"k": doc.String("v")}),
	}
}

var valueEqual = cmp.Comparer(func(a, b doc.Value) bool { return a.Equal(b) })

// Run exercises open against the Gateway contract.
func Run(t *testing.T, open Opener) {
	t.Run("FetchMissing", func(t *testing.T) {
		gw := open(t)
		defer gw.Close()

		_, err := gw.Fetch(context.Background(), "nope")
		if !store.IsNotFound(err) {
			t.Errorf("Fetch() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpsertFetchRoundTrip", func(t *testing.T) {
		gw := open(t)
		defer gw.Close()
		ctx := context.Background()

		want := Sample("d1", 3)
		if err := gw.Upsert(ctx, want); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
		got, err := gw.Fetch(ctx, "d1")
		if err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
		if diff := cmp.Diff(want, got, valueEqual); diff != "" {
			t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		gw := open(t)
		defer gw.Close()
		ctx := context.Background()

		if err := gw.Upsert(ctx, Sample("d1", 1)); err != nil {
			t.Fatalf("first Upsert() failed: %v", err)
		}
		next := doc.Raw{
			doc.IDField:      doc.String("d1"),
			doc.VersionField: doc.Int32(2),
			"fullName":       doc.String("Frank"),
		}
		if err := gw.Upsert(ctx, next); err != nil {
			t.Fatalf("second Upsert() failed: %v", err)
		}

		got, err := gw.Fetch(ctx, "d1")
		if err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
		if diff := cmp.Diff(next, got, valueEqual); diff != "" {
			t.Errorf("replaced document mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("UpsertRequiresID", func(t *testing.T) {
		gw := open(t)
		defer gw.Close()

		err := gw.Upsert(context.Background(), doc.Raw{doc.VersionField: doc.Int32(1)})
		if !errors.Is(err, store.ErrMissingID) {
			t.Errorf("Upsert() error = %v, want ErrMissingID", err)
		}
	})

	t.Run("UpsertRejectsBadVersion", func(t *testing.T) {
		gw := open(t)
		defer gw.Close()

		raw := Sample("d1", 1)
		raw[doc.VersionField] = doc.String("two")
		if err := gw.Upsert(context.Background(), raw); !errors.Is(err, doc.ErrBadVersion) {
			t.Errorf("Upsert() error = %v, want ErrBadVersion", err)
		}
	})

	t.Run("StatsAndReset", func(t *testing.T) {
		gw := open(t)
		defer gw.Close()
		ctx := context.Background()

		unversioned := doc.Raw{doc.IDField: doc.String("old"), "x": doc.Int32(1)}
		for _, raw := range []doc.Raw{Sample("a", 1), Sample("b", 3), Sample("c", 3), unversioned} {
			if err := gw.Upsert(ctx, raw); err != nil {
				t.Fatalf("Upsert() failed: %v", err)
			}
		}

		stats, err := gw.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() failed: %v", err)
		}
		want := store.Stats{Documents: 4, ByVersion: map[int]int{1: 2, 3: 2}}
		if diff := cmp.Diff(want, stats); diff != "" {
			t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
		}

		if err := gw.Reset(ctx); err != nil {
			t.Fatalf("Reset() failed: %v", err)
		}
		if _, err := gw.Fetch(ctx, "a"); !store.IsNotFound(err) {
			t.Errorf("Fetch() after Reset() error = %v, want ErrNotFound", err)
		}
		stats, err = gw.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() after Reset() failed: %v", err)
		}
		if stats.Documents != 0 {
			t.Errorf("Documents after Reset() = %d, want 0", stats.Documents)
		}
	})

	t.Run("FetchDoesNotAlias", func(t *testing.T) {
		gw := open(t)
		defer gw.Close()
		ctx := context.Background()

		raw := Sample("d1", 1)
		if err := gw.Upsert(ctx, raw); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
		raw["name"] = doc.String("changed")

		got, err := gw.Fetch(ctx, "d1")
		if err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
		if s, _ := got["name"].StringValueOK(); s != "Donnie Darko" {
			t.Errorf("name = %q, store kept a reference to the caller's document", s)
		}
	})
}
