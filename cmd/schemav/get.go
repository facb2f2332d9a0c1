package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cedd82/mongoSchemaVersion/internal/vers"
)

var (
	getShape  string
	getTarget int
	getSave   bool
)

var getCmd = &cobra.Command{
	Use:     "get <id>",
	GroupID: "docs",
	Short:   "Load a document through a shape",
	Long: `Load a stored document as the given shape, migrating it to the target
version on the way.

The target defaults to targets.<family> from config, then to the shape's
home version. Fields the shape does not declare are kept in the catch-all
and shown dimmed. The stored document is left untouched unless --save is
given.

Example:
  schemav get t1 --shape TestModelV3
  schemav get t1 --shape TestModelV2 --target 2 --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Get(cmd.Context(), args[0], getShape, getTarget, getSave)
	},
}

// Get loads id as shape and prints it.
func (a *App) Get(ctx context.Context, id, shape string, target int, save bool) error {
	l, err := a.Shape(shape)
	if err != nil {
		return err
	}
	r, err := a.Repo(ctx)
	if err != nil {
		return err
	}

	target = a.Target(l, target)
	m, err := r.LoadAny(ctx, l, id, target)
	if err != nil {
		return err
	}
	raw, err := l.EncodeModel(m)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", l.ShapeName(), err)
	}

	meta := m.Versioning()
	a.Out.Title(fmt.Sprintf("%s  %s", id, l.ShapeName()))
	switch {
	case meta.Upgraded:
		a.Out.Field("migrated", vers.Up.String())
	case meta.Downgraded:
		a.Out.Field("migrated", vers.Down.String())
	}
	dim := make(map[string]bool, len(meta.CatchAll))
	for _, name := range meta.CatchAll.Names() {
		dim[name] = true
	}
	a.Out.Document(raw, dim)

	if !save {
		return nil
	}
	if err := r.SaveAny(ctx, l, m); err != nil {
		return err
	}
	a.Out.Success("saved %s at version %d", id, meta.SchemaVersion)
	return nil
}

func init() {
	getCmd.Flags().StringVar(&getShape, "shape", "", "shape to load the document as (required)")
	getCmd.Flags().IntVar(&getTarget, "target", 0, "version to migrate to")
	getCmd.Flags().BoolVar(&getSave, "save", false, "write the migrated document back")
	_ = getCmd.MarkFlagRequired("shape")

	rootCmd.AddCommand(getCmd)
}
