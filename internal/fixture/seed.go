package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/store"
)

// Result summarizes a seeding run.
type Result struct {
	Files     int
	Documents int
	// Errors holds one entry per file that could not be seeded.
	Errors []string
}

// Config configures a Seeder.
type Config struct {
	Logger *zap.Logger
}

// DefaultConfig returns a Config that discards logs.
func DefaultConfig() Config {
	return Config{Logger: zap.NewNop()}
}

// Seeder writes fixture documents to a gateway as they are, replacing any
// stored document with the same id.
type Seeder struct {
	gw     store.Gateway
	logger *zap.Logger
}

// NewSeeder returns a Seeder writing to gw.
func NewSeeder(gw store.Gateway, cfg Config) *Seeder {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Seeder{gw: gw, logger: cfg.Logger}
}

// SeedFile loads one fixture file and upserts its documents. It returns how
// many documents were written before any failure.
func (s *Seeder) SeedFile(ctx context.Context, path string) (int, error) {
	docs, err := LoadFile(path)
	if err != nil {
		return 0, err
	}

	for i, raw := range docs {
		if err := s.gw.Upsert(ctx, raw); err != nil {
			return i, fmt.Errorf("failed to seed document %d of %s: %w", i+1, path, err)
		}
	}

	s.logger.Debug("seeded fixture file", zap.String("path", path), zap.Int("documents", len(docs)))
	return len(docs), nil
}

// SeedDir seeds every fixture file directly inside dir, in name order.
// Individual file failures are recorded in the result and don't stop the
// run. A missing directory seeds nothing.
func (s *Seeder) SeedDir(ctx context.Context, dir string) (*Result, error) {
	result := &Result{}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		s.logger.Info("fixture directory doesn't exist, skipping", zap.String("dir", dir))
		return result, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		s.seedInto(ctx, filepath.Join(dir, entry.Name()), result)
	}

	s.logger.Info("fixture directory seeded",
		zap.String("dir", dir),
		zap.Int("files", result.Files),
		zap.Int("documents", result.Documents),
		zap.Int("failed", len(result.Errors)))
	return result, nil
}

// Seed seeds each path, descending one level into directories.
func (s *Seeder) Seed(ctx context.Context, paths ...string) (*Result, error) {
	total := &Result{}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			total.Errors = append(total.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if !info.IsDir() {
			s.seedInto(ctx, path, total)
			continue
		}

		r, err := s.SeedDir(ctx, path)
		if err != nil {
			return total, err
		}
		total.Files += r.Files
		total.Documents += r.Documents
		total.Errors = append(total.Errors, r.Errors...)
	}
	return total, nil
}

func (s *Seeder) seedInto(ctx context.Context, path string, result *Result) {
	n, err := s.SeedFile(ctx, path)
	result.Documents += n
	if err != nil {
		s.logger.Warn("failed to seed fixture file", zap.String("path", path), zap.Error(err))
		result.Errors = append(result.Errors, err.Error())
		return
	}
	result.Files++
}
