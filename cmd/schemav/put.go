package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
)

var (
	putVersion int
	putSet     []string
	putUnset   []string
)

var putCmd = &cobra.Command{
	Use:     "put <id>",
	GroupID: "docs",
	Short:   "Write raw fields to a stored document",
	Long: `Write fields straight to a stored document without going through a
shape. The document is created if it does not exist.

Each --set takes name[:type]=value. Types:
  string (default), int32, int64, double, bool, null,
  time (RFC 3339, or natural language such as "yesterday 10am")

Example:
  schemav put t1 --version 1 --set fullName="Donnie Darko" --set boolPropertyToRemove:bool=true
  schemav put t1 --set testDate:time="2022-01-01T10:30:30Z" --unset counter`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Put(cmd.Context(), args[0], putVersion, putSet, putUnset, time.Now())
	},
}

// Put applies assignments and removals to the raw document id. A version of
// 0 leaves the stored version as it is.
func (a *App) Put(ctx context.Context, id string, version int, sets, unsets []string, now time.Time) error {
	if len(sets) == 0 && len(unsets) == 0 && version == 0 {
		return errors.New("nothing to write: use --set, --unset or --version")
	}
	if version != 0 {
		if err := doc.CheckVersion(int64(version)); err != nil {
			return fmt.Errorf("--version: %w", err)
		}
	}

	fields := make(map[string]doc.Value, len(sets))
	for _, s := range sets {
		name, v, err := parseAssignment(s, now)
		if err != nil {
			return err
		}
		fields[name] = v
	}

	gw, err := a.Gateway(ctx)
	if err != nil {
		return err
	}
	raw, err := gw.Fetch(ctx, id)
	switch {
	case store.IsNotFound(err):
		raw = doc.Raw{doc.IDField: doc.String(id)}
	case err != nil:
		return err
	}

	for name, v := range fields {
		raw[name] = v
	}
	for _, name := range unsets {
		delete(raw, name)
	}
	if version != 0 {
		if err := raw.SetVersion(version); err != nil {
			return err
		}
	}

	if err := gw.Upsert(ctx, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	stored, _ := raw.Version()
	a.Out.Success("wrote %s (schemaVersion %d)", id, stored)
	return nil
}

// parseAssignment splits name[:type]=value and converts value. Relative
// times are resolved against now.
func parseAssignment(s string, now time.Time) (string, doc.Value, error) {
	lhs, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", doc.Value{}, fmt.Errorf("invalid assignment %q: want name[:type]=value", s)
	}
	name, kind, _ := strings.Cut(lhs, ":")
	if name == "" {
		return "", doc.Value{}, fmt.Errorf("invalid assignment %q: empty field name", s)
	}
	if name == doc.IDField {
		return "", doc.Value{}, fmt.Errorf("cannot set %s", doc.IDField)
	}

	v, err := parseValue(kind, value, now)
	if err != nil {
		return "", doc.Value{}, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return name, v, nil
}

func parseValue(kind, value string, now time.Time) (doc.Value, error) {
	switch strings.ToLower(kind) {
	case "", "string":
		return doc.String(value), nil
	case "int32", "int":
		i, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return doc.Value{}, err
		}
		return doc.Int32(int32(i)), nil
	case "int64", "long":
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return doc.Value{}, err
		}
		return doc.Int64(i), nil
	case "double", "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return doc.Value{}, err
		}
		return doc.Double(f), nil
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return doc.Value{}, err
		}
		return doc.Bool(b), nil
	case "null":
		return doc.Null(), nil
	case "time", "date":
		t, err := parseTime(value, now)
		if err != nil {
			return doc.Value{}, err
		}
		return doc.Time(t), nil
	default:
		return doc.Value{}, fmt.Errorf("unknown type %q", kind)
	}
}

func parseTime(value string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(value, now)
	if err != nil {
		return time.Time{}, err
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as a time", value)
	}
	return r.Time, nil
}

func init() {
	putCmd.Flags().IntVar(&putVersion, "version", 0, "schemaVersion to store")
	putCmd.Flags().StringArrayVar(&putSet, "set", nil, "field assignment name[:type]=value (repeatable)")
	putCmd.Flags().StringArrayVar(&putUnset, "unset", nil, "field to remove (repeatable)")

	rootCmd.AddCommand(putCmd)
}
