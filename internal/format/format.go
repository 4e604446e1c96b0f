// Package format renders report tables as fixed-width terminal text or
// GitHub-flavoured Markdown behind a small builder interface.
package format

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode controls the table output format.
type Mode int

const (
	ASCII    Mode = iota // box-drawing terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ColumnAlign specifies the horizontal alignment for a column.
type ColumnAlign int

const (
	AlignDefault ColumnAlign = iota
	AlignLeft
	AlignRight
)

// ColumnConfig controls per-column formatting.
type ColumnConfig struct {
	Number   int // 1-based
	Align    ColumnAlign
	MaxWidth int // 0 = unlimited
}

// TableBuilder collects a titled table and renders it in the Mode chosen
// at creation.
type TableBuilder interface {
	Title(title string)
	Header(cols ...string)
	// Row appends a data row; values are rendered with fmt.Sprint.
	Row(vals ...any)
	// Footer appends a footer row, typically totals.
	Footer(vals ...any)
	// Columns sets per-column formatting. In Markdown mode MaxWidth
	// truncates cells of rows appended afterwards, since Markdown cells
	// cannot wrap.
	Columns(cfgs ...ColumnConfig)
	String() string
}

// NewTable returns a TableBuilder that renders in the given Mode.
func NewTable(m Mode) TableBuilder {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
		w.Style().Title.Align = text.AlignLeft
	}
	return &prettyTable{writer: w, mode: m}
}

type prettyTable struct {
	writer table.Writer
	mode   Mode
	title  string
	widths map[int]int
}

func (p *prettyTable) Title(title string) {
	p.title = title
	if p.mode == ASCII {
		p.writer.SetTitle(title)
	}
}

func (p *prettyTable) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	p.writer.AppendHeader(row)
}

func (p *prettyTable) Row(vals ...any) {
	if p.mode == Markdown && len(p.widths) > 0 {
		vals = p.truncate(vals)
	}
	p.writer.AppendRow(table.Row(vals))
}

func (p *prettyTable) truncate(vals []any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if w, ok := p.widths[i+1]; ok {
			out[i] = Truncate(fmt.Sprint(v), w)
			continue
		}
		out[i] = v
	}
	return out
}

func (p *prettyTable) Footer(vals ...any) {
	p.writer.AppendFooter(table.Row(vals))
}

func (p *prettyTable) Columns(cfgs ...ColumnConfig) {
	out := make([]table.ColumnConfig, len(cfgs))
	p.widths = make(map[int]int)
	for i, c := range cfgs {
		if c.MaxWidth > 0 {
			p.widths[c.Number] = c.MaxWidth
		}
		out[i] = table.ColumnConfig{
			Number:   c.Number,
			Align:    textAlign(c.Align),
			WidthMax: c.MaxWidth,
		}
	}
	p.writer.SetColumnConfigs(out)
}

func (p *prettyTable) String() string {
	if p.mode != Markdown {
		return p.writer.Render()
	}
	var b strings.Builder
	if p.title != "" {
		b.WriteString("### ")
		b.WriteString(p.title)
		b.WriteString("\n\n")
	}
	b.WriteString(p.writer.RenderMarkdown())
	return b.String()
}

func textAlign(a ColumnAlign) text.Align {
	switch a {
	case AlignLeft:
		return text.AlignLeft
	case AlignRight:
		return text.AlignRight
	default:
		return text.AlignDefault
	}
}
