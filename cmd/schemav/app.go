package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/config"
	"github.com/cedd82/mongoSchemaVersion/internal/repo"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
	"github.com/cedd82/mongoSchemaVersion/internal/ui"
	"github.com/cedd82/mongoSchemaVersion/internal/vers"
)

// GatewayOpener opens the configured store.
type GatewayOpener func(ctx context.Context, c *config.Config, log *zap.Logger) (store.Gateway, error)

// App is the state shared by every command. The store is opened on first
// use so commands that only inspect shapes never touch it.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *vers.Registry
	Out      *ui.Printer
	Open     GatewayOpener

	gw   store.Gateway
	repo *repo.Repository
}

// Gateway returns the open store, opening it if needed.
func (a *App) Gateway(ctx context.Context) (store.Gateway, error) {
	if a.gw != nil {
		return a.gw, nil
	}
	gw, err := a.Open(ctx, a.Config, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", a.Config.Store.Driver, err)
	}
	a.Logger.Debug("store opened", zap.String("driver", a.Config.Store.Driver))
	a.gw = gw
	return gw, nil
}

// Repo returns a repository over the open store.
func (a *App) Repo(ctx context.Context) (*repo.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	gw, err := a.Gateway(ctx)
	if err != nil {
		return nil, err
	}
	a.repo = repo.New(gw, repo.Config{Logger: a.Logger})
	return a.repo, nil
}

// Shape looks up a registered shape by name.
func (a *App) Shape(name string) (vers.Loader, error) {
	if name == "" {
		return nil, fmt.Errorf("--shape is required")
	}
	return a.Registry.Lookup(name)
}

// Target resolves the version to read l at: an explicit flag wins, then the
// configured target for the family, then the shape's home version.
func (a *App) Target(l vers.Loader, flag int) int {
	if flag > 0 {
		return flag
	}
	return a.Config.Target(l.FamilyName(), l.HomeVersion())
}

// Close closes the store if it was opened.
func (a *App) Close() error {
	if a.gw == nil {
		return nil
	}
	err := a.gw.Close()
	a.gw = nil
	a.repo = nil
	return err
}
