package main

import (
	"context"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cedd82/mongoSchemaVersion/internal/config"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "store",
	Short:   "Show store location and document counts per schema version",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Status(cmd.Context())
	},
}

// Status prints where documents are stored and how many exist at each
// schema version.
func (a *App) Status(ctx context.Context) error {
	gw, err := a.Gateway(ctx)
	if err != nil {
		return err
	}
	stats, err := gw.Stats(ctx)
	if err != nil {
		return err
	}

	a.Out.Title("Store")
	a.Out.Field("driver", a.Config.Store.Driver)
	switch a.Config.Store.Driver {
	case config.DriverSQLite:
		a.Out.Field("path", a.Config.Store.Path)
	case config.DriverMongo:
		a.Out.Field("uri", a.Config.Store.URI)
		a.Out.Field("collection", a.Config.Store.Database+"."+a.Config.Store.Collection)
	}
	if a.Config.File != "" {
		a.Out.Field("config", a.Config.File)
	}
	a.Out.Field("documents", strconv.Itoa(stats.Documents))

	if stats.Documents == 0 {
		return nil
	}
	rows := make([][]string, 0, len(stats.ByVersion))
	for _, v := range slices.Sorted(maps.Keys(stats.ByVersion)) {
		rows = append(rows, []string{strconv.Itoa(v), strconv.Itoa(stats.ByVersion[v])})
	}
	a.Out.Table([]string{"VERSION", "DOCUMENTS"}, rows)
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
