package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

func TestPrinter_PlainOutputHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Title("Shapes")
	p.Success("saved %s", "t1")
	p.Warning("stale")
	p.Error(errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("output to a buffer contains ANSI escapes: %q", out)
	}
	for _, want := range []string{"Shapes", "✓ saved t1", "! stale", "error: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if p.Width() != 0 {
		t.Errorf("Width() = %d for a buffer, want 0", p.Width())
	}
}

func TestPrinter_Document(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Document(doc.Raw{
		"zeta":           doc.Int32(1),
		doc.VersionField: doc.Int32(3),
		doc.IDField:      doc.String("t1"),
		"email":          doc.String("a@b.c"),
	}, map[string]bool{"email": true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	order := []string{doc.IDField, doc.VersionField, "email", "zeta"}
	for i, key := range order {
		if !strings.HasPrefix(lines[i], key) {
			t.Errorf("line %d = %q, want it to start with %s", i, lines[i], key)
		}
	}
	if !strings.Contains(lines[0], `"t1"`) {
		t.Errorf("id line = %q", lines[0])
	}
}

func TestPrinter_Table(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Table([]string{"SHAPE", "HOME"}, [][]string{
		{"TestModelV1", "1"},
		{"TestModelV5", "5"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if got := strings.LastIndex(lines[1], "1"); got != strings.Index(lines[0], "HOME") {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   doc.Value
		want string
	}{
		{"string", doc.String("Donnie"), `"Donnie"`},
		{"int32", doc.Int32(7), "7"},
		{"bool", doc.Bool(true), "true"},
		{"null", doc.Null(), "null"},
		{"int64", doc.Int64(5000000000), "5000000000"},
		{"list", doc.List(doc.String("a"), doc.Int32(2)), `["a",2]`},
		{"time", doc.Time(time.Date(2022, 1, 1, 10, 30, 30, 0, time.UTC)), "2022-01-01T10:30:30.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
