package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	newShape string
	newID    string
)

var newCmd = &cobra.Command{
	Use:     "new",
	GroupID: "docs",
	Short:   "Create an empty document at a shape's home version",
	Long: `Create a document from a shape's defaults and save it. The id is a
random UUID unless --id is given.

Example:
  schemav new --shape TestModelV3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id := newID
		if id == "" {
			id = uuid.NewString()
		}
		return app.New(cmd.Context(), newShape, id)
	},
}

// New saves a freshly created shape model under id.
func (a *App) New(ctx context.Context, shape, id string) error {
	l, err := a.Shape(shape)
	if err != nil {
		return err
	}
	r, err := a.Repo(ctx)
	if err != nil {
		return err
	}

	m := l.CreateModel(id)
	if err := r.SaveAny(ctx, l, m); err != nil {
		return err
	}
	a.Out.Success("created %s as %s (schemaVersion %d)", id, l.ShapeName(), l.HomeVersion())
	return nil
}

func init() {
	newCmd.Flags().StringVar(&newShape, "shape", "", "shape to create (required)")
	newCmd.Flags().StringVar(&newID, "id", "", "document id (default: random UUID)")
	_ = newCmd.MarkFlagRequired("shape")

	rootCmd.AddCommand(newCmd)
}
