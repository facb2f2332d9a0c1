// Package repo joins a gateway to the migration engine: Load fetches a raw
// document and reconciles it to the requested version, Save encodes a model
// and replaces the stored document.
//
// Store failures and migration failures stay distinguishable:
// store.IsNotFound and vers.IsMigrationFailure classify the returned error.
// Loading never writes; a migrated model is persisted only by Save.
package repo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
	"github.com/cedd82/mongoSchemaVersion/internal/vers"
)

// Config configures a Repository.
type Config struct {
	Logger *zap.Logger
}

// DefaultConfig returns a Config that discards logs.
func DefaultConfig() Config {
	return Config{Logger: zap.NewNop()}
}

// Repository loads and saves versioned models through a Gateway.
type Repository struct {
	gw     store.Gateway
	logger *zap.Logger
}

// New returns a Repository over gw.
func New(gw store.Gateway, cfg Config) *Repository {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Repository{gw: gw, logger: cfg.Logger}
}

// Gateway returns the underlying gateway.
func (r *Repository) Gateway() store.Gateway {
	return r.gw
}

// Load fetches id and returns it as an s model at version target.
func Load[M vers.Model](ctx context.Context, r *Repository, s *vers.Shape[M], id string, target int) (M, error) {
	var zero M

	raw, from, err := r.fetch(ctx, id)
	if err != nil {
		return zero, err
	}
	m, err := s.Load(raw, target)
	if err != nil {
		return zero, r.migrationFailed(s.Name, id, from, target, err)
	}
	r.logMigration(s.Name, id, from, m)
	return m, nil
}

// Save encodes m with s and replaces the stored document.
func Save[M vers.Model](ctx context.Context, r *Repository, s *vers.Shape[M], m M) error {
	raw, err := s.Encode(m)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.Name, err)
	}
	return r.put(ctx, s.Name, raw)
}

// LoadAny is Load for a shape chosen at run time.
func (r *Repository) LoadAny(ctx context.Context, l vers.Loader, id string, target int) (vers.Model, error) {
	raw, from, err := r.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := l.LoadModel(raw, target)
	if err != nil {
		return nil, r.migrationFailed(l.ShapeName(), id, from, target, err)
	}
	r.logMigration(l.ShapeName(), id, from, m)
	return m, nil
}

// SaveAny is Save for a shape chosen at run time.
func (r *Repository) SaveAny(ctx context.Context, l vers.Loader, m vers.Model) error {
	raw, err := l.EncodeModel(m)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", l.ShapeName(), err)
	}
	return r.put(ctx, l.ShapeName(), raw)
}

// Reset removes every stored document.
func (r *Repository) Reset(ctx context.Context) error {
	if err := r.gw.Reset(ctx); err != nil {
		return err
	}
	r.logger.Info("store reset")
	return nil
}

func (r *Repository) fetch(ctx context.Context, id string) (doc.Raw, int, error) {
	raw, err := r.gw.Fetch(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", id, err)
	}
	from, err := raw.Version()
	if err != nil {
		r.logger.Warn("stored document has an invalid schemaVersion", zap.String("id", id), zap.Error(err))
		return nil, 0, fmt.Errorf("document %s: %w", id, err)
	}
	return raw, from, nil
}

func (r *Repository) put(ctx context.Context, shape string, raw doc.Raw) error {
	if err := r.gw.Upsert(ctx, raw); err != nil {
		return fmt.Errorf("failed to save %s: %w", shape, err)
	}
	id, _ := raw.ID()
	version, _ := raw.Version()
	r.logger.Debug("document saved",
		zap.String("shape", shape),
		zap.String("id", id),
		zap.Int("version", version))
	return nil
}

func (r *Repository) migrationFailed(shape, id string, from, target int, err error) error {
	r.logger.Warn("migration failed",
		zap.String("shape", shape),
		zap.String("id", id),
		zap.Int("from", from),
		zap.Int("target", target),
		zap.Error(err))
	return fmt.Errorf("failed to load %s as %s: %w", id, shape, err)
}

func (r *Repository) logMigration(shape, id string, from int, m vers.Model) {
	meta := m.Versioning()
	if !meta.Upgraded && !meta.Downgraded {
		return
	}
	direction := vers.Up
	if meta.Downgraded {
		direction = vers.Down
	}
	r.logger.Info("document migrated",
		zap.String("shape", shape),
		zap.String("id", id),
		zap.Stringer("direction", direction),
		zap.Int("from", from),
		zap.Int("to", meta.SchemaVersion))
}
