package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	planShape string
	planFrom  int
	planTo    int
)

var shapesCmd = &cobra.Command{
	Use:     "shapes",
	GroupID: "shapes",
	Short:   "List the registered shapes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app.Shapes()
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:     "plan",
	GroupID: "shapes",
	Short:   "Show the steps a load would take",
	Long: `Show the migration steps a shape would run to move a document from one
version to another, without touching the store. Steps with no declared
rule are bridged and change nothing.

--to defaults to targets.<family> from config, then to the shape's home
version.

Example:
  schemav plan --shape TestModelV2 --from 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Plan(planShape, planFrom, planTo)
	},
}

// Shapes prints every registered shape and its rules.
func (a *App) Shapes() {
	var rows [][]string
	for _, l := range a.Registry.Shapes() {
		rows = append(rows, []string{
			l.ShapeName(),
			l.FamilyName(),
			strconv.Itoa(l.HomeVersion()),
			versionList(l.UpgradeVersions()),
			versionList(l.DowngradeVersions()),
		})
	}
	a.Out.Table([]string{"SHAPE", "FAMILY", "HOME", "UPGRADES FROM", "DOWNGRADES FROM"}, rows)
}

// Plan prints the steps shape takes from one version to another.
func (a *App) Plan(shape string, from, to int) error {
	l, err := a.Shape(shape)
	if err != nil {
		return err
	}
	if from < 1 {
		return errors.New("--from must be at least 1")
	}
	to = a.Target(l, to)

	steps, err := l.Plan(from, to)
	if err != nil {
		return err
	}

	a.Out.Title(fmt.Sprintf("%s  %d -> %d", l.ShapeName(), from, to))
	if len(steps) == 0 {
		a.Out.Success("already at version %d", to)
		return nil
	}
	rows := make([][]string, 0, len(steps))
	for _, s := range steps {
		rule := "rule"
		if s.Bridged {
			rule = "bridge"
		}
		rows = append(rows, []string{
			strconv.Itoa(s.From),
			strconv.Itoa(s.To),
			s.Direction.String(),
			rule,
		})
	}
	a.Out.Table([]string{"FROM", "TO", "DIRECTION", "STEP"}, rows)
	return nil
}

func versionList(vs []int) string {
	if len(vs) == 0 {
		return "-"
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func init() {
	planCmd.Flags().StringVar(&planShape, "shape", "", "shape to plan for (required)")
	planCmd.Flags().IntVar(&planFrom, "from", 0, "stored version (required)")
	planCmd.Flags().IntVar(&planTo, "to", 0, "target version")
	_ = planCmd.MarkFlagRequired("shape")
	_ = planCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(shapesCmd)
	rootCmd.AddCommand(planCmd)
}
