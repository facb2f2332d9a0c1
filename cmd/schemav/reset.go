package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:     "reset",
	GroupID: "store",
	Short:   "Remove every stored document",
	Long: `Remove every document from the configured store. Asks for confirmation
unless --yes is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm := confirmPrompt
		if resetYes {
			confirm = nil
		}
		return app.Reset(cmd.Context(), confirm)
	},
}

// confirmPrompt asks on the terminal whether to go ahead.
func confirmPrompt(title string) (bool, error) {
	ok := false
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// Reset empties the store. confirm, when set, is asked first.
func (a *App) Reset(ctx context.Context, confirm func(title string) (bool, error)) error {
	if confirm != nil {
		title := fmt.Sprintf("Delete every document in the %s store?", a.Config.Store.Driver)
		ok, err := confirm(title)
		if err != nil {
			return err
		}
		if !ok {
			a.Out.Warning("reset cancelled")
			return nil
		}
	}

	r, err := a.Repo(ctx)
	if err != nil {
		return err
	}
	if err := r.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	a.Out.Success("store reset")
	return nil
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(resetCmd)
}
