// Package loadtest measures lazy migration under concurrent load.
//
// A store is populated with TestModel documents spread across every stored
// version, then many workers load them through one shape at once. Each load
// pays for the rules between the stored and the target version, so the
// latency distribution shows what migration costs on the read path.
package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
	"github.com/cedd82/mongoSchemaVersion/internal/repo"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
	"github.com/cedd82/mongoSchemaVersion/internal/testmodel"
	"github.com/cedd82/mongoSchemaVersion/internal/vers"
)

// Fixture is a populated store.
type Fixture struct {
	IDs []string
	// ByVersion counts the documents written at each version.
	ByVersion map[int]int
}

// LatencyStats captures the timing of a load run.
type LatencyStats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
	P50  time.Duration // median
	P95  time.Duration
	P99  time.Duration

	TotalLoads int
	// Migrated counts loads that moved the document to another version.
	Migrated int
	// Failed counts loads the shape could not migrate.
	Failed int

	Durations []time.Duration
}

// Options control a load run.
type Options struct {
	Workers        int
	LoadsPerWorker int
	// Target is the version documents are loaded at.
	Target int
	// Seed makes the choice of documents repeatable.
	Seed int64
}

// Populate writes count TestModel documents to gw, cycling through
// versions. Ids are bench-00000, bench-00001 and so on.
func Populate(ctx context.Context, gw store.Gateway, count int, versions []int) (*Fixture, error) {
	if count < 1 {
		return nil, fmt.Errorf("document count must be positive, got %d", count)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("no versions to populate")
	}

	f := &Fixture{IDs: make([]string, 0, count), ByVersion: make(map[int]int)}
	base := time.Now().Add(-30 * 24 * time.Hour).UTC().Truncate(time.Millisecond)

	for i := 0; i < count; i++ {
		version := versions[i%len(versions)]
		raw, err := generateDocument(i, version, base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			return nil, err
		}
		if err := gw.Upsert(ctx, raw); err != nil {
			return nil, fmt.Errorf("failed to insert document %d: %w", i, err)
		}
		id, _ := raw.ID()
		f.IDs = append(f.IDs, id)
		f.ByVersion[version]++
	}
	return f, nil
}

// generateDocument returns document i as version v of TestModel would have
// written it.
func generateDocument(i, v int, created time.Time) (doc.Raw, error) {
	raw := doc.Raw{
		doc.IDField:             doc.String(fmt.Sprintf("bench-%05d", i)),
		testmodel.FieldTestDate: doc.Time(created),
	}
	if err := raw.SetVersion(v); err != nil {
		return nil, err
	}

	first, last := "First"+strconv.Itoa(i), "Last"+strconv.Itoa(i)
	switch v {
	case 1:
		raw[testmodel.FieldBoolPropertyToRemove] = doc.Bool(i%2 == 0)
	case 2:
		raw[testmodel.FieldFullName] = doc.String(first + " " + last)
	case 3, 4, 5:
		raw[testmodel.FieldFirstName] = doc.String(first)
		raw[testmodel.FieldLastName] = doc.String(last)
		if v == 3 {
			raw[testmodel.FieldCounter] = doc.Int32(int32(i))
		} else {
			raw[testmodel.FieldCounter] = doc.String(strconv.Itoa(i))
		}
		if v == 5 {
			raw[testmodel.FieldEmail] = doc.String(fmt.Sprintf("user%d@example.com", i))
		}
	default:
		return nil, fmt.Errorf("TestModel has no version %d", v)
	}
	return raw, nil
}

// RunConcurrentLoads runs opts.Workers workers, each loading
// opts.LoadsPerWorker random documents from ids as l at opts.Target.
// Migration failures are counted, not returned; any other error stops the
// run.
func RunConcurrentLoads(ctx context.Context, r *repo.Repository, l vers.Loader, ids []string, opts Options) (*LatencyStats, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no documents to load")
	}
	if opts.Workers < 1 || opts.LoadsPerWorker < 1 {
		return nil, fmt.Errorf("workers and loads per worker must be positive")
	}

	var (
		mu        sync.Mutex
		durations = make([]time.Duration, 0, opts.Workers*opts.LoadsPerWorker)
		migrated  int
		failed    int
	)

	eg, egCtx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		rng := rand.New(rand.NewSource(opts.Seed + int64(w)))
		eg.Go(func() error {
			local := make([]time.Duration, 0, opts.LoadsPerWorker)
			var localMigrated, localFailed int

			for j := 0; j < opts.LoadsPerWorker; j++ {
				id := ids[rng.Intn(len(ids))]
				start := time.Now()
				m, err := r.LoadAny(egCtx, l, id, opts.Target)
				local = append(local, time.Since(start))

				switch {
				case vers.IsMigrationFailure(err):
					localFailed++
				case err != nil:
					return fmt.Errorf("load %d of %s failed: %w", j, id, err)
				default:
					meta := m.Versioning()
					if meta.Upgraded || meta.Downgraded {
						localMigrated++
					}
				}
			}

			mu.Lock()
			durations = append(durations, local...)
			migrated += localMigrated
			failed += localFailed
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	stats := computeLatencyStats(durations)
	stats.Migrated = migrated
	stats.Failed = failed
	return stats, nil
}

// VerifyConcurrentSaves has workers load and save random documents as l
// at target until duration elapses, then checks that every document they
// touched is stored at target and still loads. Documents l cannot migrate
// are skipped.
func VerifyConcurrentSaves(ctx context.Context, r *repo.Repository, l vers.Loader, ids []string, target, workers int, duration time.Duration) error {
	if len(ids) == 0 {
		return fmt.Errorf("no documents to save")
	}
	if workers < 1 || duration <= 0 {
		return fmt.Errorf("workers and duration must be positive")
	}

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var mu sync.Mutex
	touched := make(map[string]bool)

	eg, egCtx := errgroup.WithContext(runCtx)
	for w := 0; w < workers; w++ {
		rng := rand.New(rand.NewSource(int64(w)))
		eg.Go(func() error {
			for egCtx.Err() == nil {
				id := ids[rng.Intn(len(ids))]
				m, err := r.LoadAny(egCtx, l, id, target)
				if vers.IsMigrationFailure(err) {
					continue
				}
				if err != nil {
					if egCtx.Err() != nil {
						return nil
					}
					return fmt.Errorf("worker %d load of %s failed: %w", w, id, err)
				}
				if err := r.SaveAny(egCtx, l, m); err != nil {
					if egCtx.Err() != nil {
						return nil
					}
					return fmt.Errorf("worker %d save of %s failed: %w", w, id, err)
				}
				mu.Lock()
				touched[id] = true
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	gw := r.Gateway()
	for id := range touched {
		raw, err := gw.Fetch(ctx, id)
		if err != nil {
			return fmt.Errorf("document %s unreadable after concurrent saves: %w", id, err)
		}
		v, err := raw.Version()
		if err != nil {
			return fmt.Errorf("document %s: %w", id, err)
		}
		if v != target {
			return fmt.Errorf("document %s stored at version %d, want %d", id, v, target)
		}
		if _, err := l.LoadModel(raw, target); err != nil {
			return fmt.Errorf("document %s no longer loads: %w", id, err)
		}
	}
	return nil
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return &LatencyStats{
		Min:        sorted[0],
		Max:        sorted[len(sorted)-1],
		Mean:       sum / time.Duration(len(sorted)),
		P50:        sorted[len(sorted)*50/100],
		P95:        sorted[len(sorted)*95/100],
		P99:        sorted[len(sorted)*99/100],
		TotalLoads: len(sorted),
		Durations:  sorted,
	}
}
