// Package watch keeps a store seeded from a fixture directory.
//
// The watcher:
//  1. Seeds every fixture file in the directory on start
//  2. Watches the directory for created or rewritten fixture files
//  3. Re-seeds each changed file once writes to it have settled
//
// Removing a fixture file leaves its documents in the store.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/fixture"
)

// Seeder is the part of fixture.Seeder the watcher drives.
type Seeder interface {
	SeedFile(ctx context.Context, path string) (int, error)
	SeedDir(ctx context.Context, dir string) (*fixture.Result, error)
}

// Config holds configuration for a Watcher.
type Config struct {
	// Debounce is how long a file must go unchanged before it is seeded.
	Debounce time.Duration

	Logger *zap.Logger

	// OnSeed, if set, is called after each changed file is seeded.
	OnSeed func(path string, documents int, err error)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Debounce: 200 * time.Millisecond,
		Logger:   zap.NewNop(),
	}
}

// Watcher re-seeds fixture files as they change.
type Watcher struct {
	dir    string
	seeder Seeder
	config Config

	queue   map[string]time.Time // path -> last event
	queueMu sync.Mutex
}

// New creates a Watcher for dir with default configuration.
func New(dir string, seeder Seeder) (*Watcher, error) {
	return NewWithConfig(dir, seeder, DefaultConfig())
}

// NewWithConfig creates a Watcher with custom configuration.
func NewWithConfig(dir string, seeder Seeder, config Config) (*Watcher, error) {
	if dir == "" {
		return nil, errors.New("fixture directory cannot be empty")
	}
	if seeder == nil {
		return nil, errors.New("seeder cannot be nil")
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fixture directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat fixture directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	return &Watcher{
		dir:    abs,
		seeder: seeder,
		config: config,
		queue:  make(map[string]time.Time),
	}, nil
}

// Run seeds the directory, then watches it until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	result, err := w.seeder.SeedDir(ctx, w.dir)
	if err != nil {
		return fmt.Errorf("initial seed failed: %w", err)
	}
	w.config.Logger.Info("initial seed complete",
		zap.Int("files", result.Files),
		zap.Int("documents", result.Documents),
		zap.Int("failed", len(result.Errors)))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.config.Logger.Info("watching fixtures", zap.String("dir", w.dir))

	ticker := time.NewTicker(w.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.config.Logger.Info("fixture watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !fixture.Supported(event.Name) {
				continue
			}
			w.config.Logger.Debug("fixture event", zap.Stringer("op", event.Op), zap.String("path", event.Name))
			w.queueChange(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.config.Logger.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *Watcher) queueChange(path string) {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	w.queue[path] = time.Now()
}

// processPending seeds files whose last event is older than the debounce
// interval.
func (w *Watcher) processPending(ctx context.Context) {
	w.queueMu.Lock()
	var ready []string
	now := time.Now()
	for path, queuedAt := range w.queue {
		if now.Sub(queuedAt) < w.config.Debounce {
			continue
		}
		ready = append(ready, path)
		delete(w.queue, path)
	}
	w.queueMu.Unlock()

	for _, path := range ready {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		n, err := w.seeder.SeedFile(ctx, path)
		if err != nil {
			w.config.Logger.Warn("failed to seed changed fixture", zap.String("path", path), zap.Error(err))
		} else {
			w.config.Logger.Info("seeded changed fixture", zap.String("path", path), zap.Int("documents", n))
		}
		if w.config.OnSeed != nil {
			w.config.OnSeed(path, n, err)
		}
	}
}
