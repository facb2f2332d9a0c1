// Package ui renders schemav output for the terminal. Styling is dropped
// when the destination is not a terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/term"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

var (
	accent  = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	success = lipgloss.Color("#8BC34A")
	warning = lipgloss.Color("#FFC107")
	danger  = lipgloss.Color("#e53935")
)

// Styles are the text styles a Printer uses.
type Styles struct {
	Title lipgloss.Style
	Key   lipgloss.Style
	Muted lipgloss.Style
	Bold  lipgloss.Style
	OK    lipgloss.Style
	Warn  lipgloss.Style
	Err   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title: r.NewStyle().Bold(true).Foreground(accent),
		Key:   r.NewStyle().Foreground(accent),
		Muted: r.NewStyle().Faint(true),
		Bold:  r.NewStyle().Bold(true),
		OK:    r.NewStyle().Foreground(success),
		Warn:  r.NewStyle().Foreground(warning),
		Err:   r.NewStyle().Bold(true).Foreground(danger),
	}
}

// Printer writes styled output to one destination.
type Printer struct {
	out    io.Writer
	width  int
	Styles Styles
}

// NewPrinter returns a Printer for w. Colors are used only when w is a
// terminal and NO_COLOR is unset.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	width := 0

	f, isFile := w.(*os.File)
	if isFile && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = cols
		}
		if os.Getenv("NO_COLOR") != "" {
			r.SetColorProfile(termenv.Ascii)
		}
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Printer{out: w, width: width, Styles: newStyles(r)}
}

// Width is the terminal width, or 0 when unknown.
func (p *Printer) Width() int {
	return p.width
}

func (p *Printer) line(s string) {
	fmt.Fprintln(p.out, s)
}

// Title prints a heading.
func (p *Printer) Title(s string) {
	p.line(p.Styles.Title.Render(s))
}

// Success prints a confirmation.
func (p *Printer) Success(format string, args ...any) {
	p.line(p.Styles.OK.Render("✓ ") + fmt.Sprintf(format, args...))
}

// Warning prints a warning.
func (p *Printer) Warning(format string, args ...any) {
	p.line(p.Styles.Warn.Render("! ") + fmt.Sprintf(format, args...))
}

// Error prints an error.
func (p *Printer) Error(err error) {
	p.line(p.Styles.Err.Render("error: ") + err.Error())
}

// Field prints one name and value pair.
func (p *Printer) Field(name, value string) {
	p.line(p.Styles.Key.Render(name+":") + " " + value)
}

// Document prints a raw document one field per line in storage order.
// Fields named in dim are printed muted.
func (p *Printer) Document(raw doc.Raw, dim map[string]bool) {
	width := 0
	for k := range raw {
		if len(k) > width {
			width = len(k)
		}
	}
	for _, k := range raw.Keys() {
		key := fmt.Sprintf("%-*s", width, k)
		value := FormatValue(raw[k])
		if dim[k] {
			p.line(p.Styles.Muted.Render(key + "  " + value))
			continue
		}
		p.line(p.Styles.Key.Render(key) + "  " + value)
	}
}

// Table prints rows under headers with aligned columns.
func (p *Printer) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	render := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = style.Width(widths[i]).Render(cell)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	p.line(render(headers, p.Styles.Bold))
	for _, row := range rows {
		p.line(render(row, lipgloss.NewStyle()))
	}
}

// FormatValue renders a value as relaxed extended JSON.
func FormatValue(v doc.Value) string {
	if t, ok := doc.AsTime(v); ok {
		return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	if s, ok := v.StringValueOK(); ok {
		return fmt.Sprintf("%q", s)
	}
	data, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return v.String()
	}
	out := strings.TrimPrefix(string(data), `{"v":`)
	return strings.TrimSuffix(out, "}")
}
