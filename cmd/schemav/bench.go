package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/loadtest"
	"github.com/cedd82/mongoSchemaVersion/internal/repo"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
	"github.com/cedd82/mongoSchemaVersion/internal/store/memstore"
	"github.com/cedd82/mongoSchemaVersion/internal/store/sqlite"
)

// BenchOptions configure a bench run.
type BenchOptions struct {
	Shape    string
	Store    string
	Docs     int
	Versions []int
	Workers  int
	Loads    int
	Target   int
	Saves    time.Duration
}

var benchOpts = BenchOptions{
	Shape:   "TestModelV5",
	Store:   "sqlite",
	Docs:    1000,
	Workers: 16,
	Loads:   100,
}

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "shapes",
	Short:   "Measure load latency with migration under concurrency",
	Long: `Populate a scratch store with TestModel documents spread across stored
versions, then load them concurrently through one shape and report the
latency distribution. The configured store is never touched.

With --saves, workers also load and save documents for that long and the
run checks every saved document ended at the target version.

Example:
  schemav bench --workers 32 --loads 200
  schemav bench --shape TestModelV2 --versions 1,2,3,4,5 --saves 2s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Bench(cmd.Context(), benchOpts)
	},
}

// openScratch opens an empty store that is removed when closed.
func (a *App) openScratch(ctx context.Context, kind string) (store.Gateway, func(), error) {
	switch kind {
	case "memory":
		return memstore.New(), func() {}, nil
	case "sqlite":
		dir, err := os.MkdirTemp("", "schemav-bench-")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create scratch directory: %w", err)
		}
		db, err := sqlite.OpenWithConfig(ctx, filepath.Join(dir, "bench.db"), sqlite.Config{Logger: a.Logger})
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, nil, err
		}
		cleanup := func() {
			if err := db.Close(); err != nil {
				a.Logger.Warn("failed to close scratch store", zap.Error(err))
			}
			_ = os.RemoveAll(dir)
		}
		return db, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown scratch store %q (want memory or sqlite)", kind)
	}
}

// Bench populates a scratch store and measures concurrent loads.
func (a *App) Bench(ctx context.Context, opts BenchOptions) error {
	l, err := a.Shape(opts.Shape)
	if err != nil {
		return err
	}
	if len(opts.Versions) == 0 {
		// Version 1 documents cannot be read above version 2.
		opts.Versions = []int{2, 3, 4, 5}
	}
	target := a.Target(l, opts.Target)

	gw, cleanup, err := a.openScratch(ctx, opts.Store)
	if err != nil {
		return err
	}
	defer cleanup()

	start := time.Now()
	f, err := loadtest.Populate(ctx, gw, opts.Docs, opts.Versions)
	if err != nil {
		return err
	}
	a.Out.Success("populated %d documents in %s", len(f.IDs), time.Since(start).Round(time.Millisecond))

	r := repo.New(gw, repo.Config{Logger: zap.NewNop()})
	start = time.Now()
	stats, err := loadtest.RunConcurrentLoads(ctx, r, l, f.IDs, loadtest.Options{
		Workers:        opts.Workers,
		LoadsPerWorker: opts.Loads,
		Target:         target,
		Seed:           42,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	a.Out.Title(fmt.Sprintf("%s at version %d  (%s store)", l.ShapeName(), target, opts.Store))
	a.Out.Field("loads", strconv.Itoa(stats.TotalLoads))
	a.Out.Field("migrated", strconv.Itoa(stats.Migrated))
	a.Out.Field("failed", strconv.Itoa(stats.Failed))
	a.Out.Field("throughput", fmt.Sprintf("%.0f loads/s", float64(stats.TotalLoads)/elapsed.Seconds()))
	a.Out.Table([]string{"MIN", "P50", "MEAN", "P95", "P99", "MAX"}, [][]string{{
		stats.Min.String(), stats.P50.String(), stats.Mean.String(),
		stats.P95.String(), stats.P99.String(), stats.Max.String(),
	}})

	if opts.Saves <= 0 {
		return nil
	}
	if err := loadtest.VerifyConcurrentSaves(ctx, r, l, f.IDs, target, opts.Workers, opts.Saves); err != nil {
		return err
	}
	a.Out.Success("concurrent saves for %s left every document at version %d", opts.Saves, target)
	return nil
}

func init() {
	benchCmd.Flags().StringVar(&benchOpts.Shape, "shape", benchOpts.Shape, "shape to load documents as")
	benchCmd.Flags().StringVar(&benchOpts.Store, "store", benchOpts.Store, "scratch store: memory or sqlite")
	benchCmd.Flags().IntVar(&benchOpts.Docs, "docs", benchOpts.Docs, "documents to populate")
	benchCmd.Flags().IntSliceVar(&benchOpts.Versions, "versions", nil, "stored versions to spread documents across (default 2 to 5)")
	benchCmd.Flags().IntVar(&benchOpts.Workers, "workers", benchOpts.Workers, "concurrent workers")
	benchCmd.Flags().IntVar(&benchOpts.Loads, "loads", benchOpts.Loads, "loads per worker")
	benchCmd.Flags().IntVar(&benchOpts.Target, "target", 0, "version to load at")
	benchCmd.Flags().DurationVar(&benchOpts.Saves, "saves", 0, "also run concurrent load-and-save for this long")

	rootCmd.AddCommand(benchCmd)
}
