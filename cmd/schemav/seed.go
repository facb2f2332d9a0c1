package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/config"
	"github.com/cedd82/mongoSchemaVersion/internal/feed"
	"github.com/cedd82/mongoSchemaVersion/internal/fixture"
	"github.com/cedd82/mongoSchemaVersion/internal/watch"
)

var seedCmd = &cobra.Command{
	Use:     "seed <path>...",
	GroupID: "store",
	Short:   "Write fixture documents to the store",
	Long: `Write the documents in fixture files to the store as they are, without
migrating them. Each path is a file or a directory of files.

Fixture formats:
  .yaml/.yml    a documents: list, or a stream of documents
  .toml         [[documents]] tables
  .json/.jsonl  one extended-JSON document per line

Unquoted YAML timestamps are stored as datetimes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Seed(cmd.Context(), args...)
	},
}

var watchListen string

var watchCmd = &cobra.Command{
	Use:     "watch <dir>",
	GroupID: "store",
	Short:   "Seed a fixture directory and re-seed files as they change",
	Long: `Seed every fixture file in a directory, then keep watching it and
re-seed each file once writes to it settle (watch.debounce in config).
Deleting a file leaves its documents in the store.

With --listen, seed events and per-version document counts are streamed
to WebSocket clients on /ws, and /api/stats serves the current counts.

Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Watch(cmd.Context(), args[0], watchListen)
	},
}

func (a *App) seeder(ctx context.Context) (*fixture.Seeder, error) {
	gw, err := a.Gateway(ctx)
	if err != nil {
		return nil, err
	}
	return fixture.NewSeeder(gw, fixture.Config{Logger: a.Logger}), nil
}

// Seed writes the fixture documents found at paths.
func (a *App) Seed(ctx context.Context, paths ...string) error {
	s, err := a.seeder(ctx)
	if err != nil {
		return err
	}
	result, err := s.Seed(ctx, paths...)
	if err != nil {
		return err
	}

	for _, e := range result.Errors {
		a.Out.Warning("%s", e)
	}
	a.Out.Success("seeded %d documents from %d files", result.Documents, result.Files)
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d fixture files failed", len(result.Errors))
	}
	return nil
}

// Watch seeds dir and re-seeds changed files until ctx is done. A non-empty
// listen address also serves the event feed.
func (a *App) Watch(ctx context.Context, dir, listen string) error {
	s, err := a.seeder(ctx)
	if err != nil {
		return err
	}
	gw, err := a.Gateway(ctx)
	if err != nil {
		return err
	}

	wc := watch.DefaultConfig()
	wc.Debounce = a.Config.Watch.Debounce
	wc.Logger = a.Logger
	wc.OnSeed = func(path string, n int, err error) {
		if err != nil {
			a.Out.Warning("%s: %v", path, err)
			return
		}
		a.Out.Success("%s  %d documents  %s", path, n, time.Now().Format(time.TimeOnly))
	}

	if listen != "" {
		server := feed.NewServer(feed.Config{Addr: listen, Stats: gw.Stats, Logger: a.Logger})
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			if err := server.Stop(); err != nil {
				a.Logger.Warn("failed to stop event feed", zap.Error(err))
			}
		}()

		pub := feed.NewPublisher(server, gw.Stats, a.Logger)
		printSeed := wc.OnSeed
		wc.OnSeed = func(path string, n int, err error) {
			printSeed(path, n, err)
			pub.OnSeed(path, n, err)
		}
		a.Out.Field("feed", "ws://"+server.Addr()+"/ws")
	}

	w, err := watch.NewWithConfig(dir, s, wc)
	if err != nil {
		return err
	}

	if a.Config.File != "" {
		v, err := config.New(a.Config.File)
		if err != nil {
			return err
		}
		config.Watch(v, func(c *config.Config, err error) {
			if err != nil {
				a.Logger.Warn("ignoring invalid config change", zap.Error(err))
				return
			}
			if c.Store != a.Config.Store {
				a.Logger.Warn("store settings changed; restart watch to apply them")
			}
		})
	}

	a.Out.Title("Watching " + dir)
	a.Out.Field("store", a.Config.Store.Driver)
	a.Out.Field("debounce", wc.Debounce.String())
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to stop")

	return w.Run(ctx)
}

func init() {
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "serve the event feed on this address, e.g. :8080")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(watchCmd)
}
