package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"podracer/internal/affinity"
	"podracer/internal/format"
)

// Mode selects the report output format.
type Mode int

const (
	Text Mode = iota
	ASCII
	Markdown
	JSON
)

var modeNames = map[string]Mode{
	"text":     Text,
	"ascii":    ASCII,
	"markdown": Markdown,
	"md":       Markdown,
	"json":     JSON,
}

// ParseMode maps a --format value to a Mode.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeNames[strings.ToLower(s)]; ok {
		return m, nil
	}
	return Text, fmt.Errorf("unknown report format %q (want text, ascii, markdown or json)", s)
}

func (m Mode) table() format.Mode {
	if m == Markdown {
		return format.Markdown
	}
	return format.ASCII
}

// Render writes r to w. Every mode except JSON starts with the message log.
func Render(w io.Writer, r *Report, m Mode) error {
	switch m {
	case JSON:
		return writeJSON(w, r)
	case Text:
		return renderText(w, r)
	case ASCII, Markdown:
		return renderTables(w, r, m.table())
	}
	return fmt.Errorf("report: unsupported mode %d", m)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// lineWriter remembers the first write error so rendering code can stay
// linear.
type lineWriter struct {
	w   io.Writer
	err error
}

func (lw *lineWriter) println(parts ...string) {
	if lw.err != nil {
		return
	}
	_, lw.err = io.WriteString(lw.w, strings.Join(parts, "")+"\n")
}

func renderText(w io.Writer, r *Report) error {
	lw := &lineWriter{w: w}
	for _, m := range r.Messages {
		lw.println(m)
	}

	lw.println("Duplicate Identifiers")
	for _, d := range r.DuplicateIdentifiers {
		lw.println("  Identifier: ", d.Key)
		for _, t := range d.Titles {
			lw.println("    Dataset: ", t)
		}
	}
	lw.println()

	lw.println("Duplicate Titles")
	for _, t := range r.DuplicateTitles {
		lw.println("  ", t)
	}
	lw.println()

	lw.println("Questionable Keywords")
	for _, q := range r.Questionable {
		for _, reason := range q.Reasons {
			lw.println(`  "`, q.Keyword, `" - `, reason.Text())
		}
	}
	lw.println()

	for _, s := range r.Sections() {
		lw.println(s.Title)
		for _, c := range s.Counts {
			key := c.Key
			if s.Label == "Keyword" {
				key = `"` + key + `"`
			}
			lw.println("  ", key, " ", fmt.Sprint(c.Count))
		}
		lw.println()
	}

	if len(r.LinkFailures) > 0 {
		lw.println("Link failures by domain")
		for _, d := range r.LinkFailures {
			lw.println("  ", d.Domain, " ", fmt.Sprint(len(d.Failures)))
			for _, f := range d.Failures {
				lw.println(fmt.Sprintf("    Dataset %d %s %s", f.Dataset, f.Field, f.Outcome.Description()))
			}
		}
		lw.println()
	}
	return lw.err
}

func renderTables(w io.Writer, r *Report, m format.Mode) error {
	lw := &lineWriter{w: w}
	for _, msg := range r.Messages {
		lw.println(msg)
	}

	var tables []format.TableBuilder

	summary := format.NewTable(m)
	summary.Title("Summary")
	summary.Header("Manifest", "Datasets", "Distributions", "Analyzed", "Skipped")
	summary.Row(r.ManifestID, format.Count(r.Datasets), format.Count(r.Distributions),
		format.Count(r.Analyzed), format.Count(r.Skipped))
	tables = append(tables, summary)

	ids := format.NewTable(m)
	ids.Title("Duplicate Identifiers")
	ids.Header("Identifier", "Dataset")
	for _, d := range r.DuplicateIdentifiers {
		for _, t := range d.Titles {
			ids.Row(d.Key, t)
		}
	}
	tables = append(tables, ids)

	titles := format.NewTable(m)
	titles.Title("Duplicate Titles")
	titles.Header("Title")
	for _, t := range r.DuplicateTitles {
		titles.Row(t)
	}
	tables = append(tables, titles)

	kws := format.NewTable(m)
	kws.Title("Questionable Keywords")
	kws.Header("Keyword", "Problem")
	kws.Columns(format.ColumnConfig{Number: 1, MaxWidth: 60})
	for _, q := range r.Questionable {
		for _, reason := range q.Reasons {
			kws.Row(q.Keyword, reason.Text())
		}
	}
	tables = append(tables, kws)

	for _, s := range r.Sections() {
		tb := format.NewTable(m)
		tb.Title(s.Title)
		tb.Header(s.Label, "Count", "Share")
		tb.Columns(
			format.ColumnConfig{Number: 1, MaxWidth: 60},
			format.ColumnConfig{Number: 2, Align: format.AlignRight},
			format.ColumnConfig{Number: 3, Align: format.AlignRight},
		)
		total := s.Total()
		for _, c := range s.Counts {
			tb.Row(c.Key, format.Count(c.Count), format.Percent(c.Count, total))
		}
		tb.Footer("TOTAL", format.Count(total), "")
		tables = append(tables, tb)
	}

	if len(r.LinkFailures) > 0 {
		tb := format.NewTable(m)
		tb.Title("Link failures by domain")
		tb.Header("Domain", "Dataset", "Field", "Problem")
		for _, d := range r.LinkFailures {
			for _, f := range d.Failures {
				tb.Row(d.Domain, f.Dataset, f.Field, f.Outcome.Description())
			}
		}
		tables = append(tables, tb)
	}

	for _, tb := range tables {
		lw.println()
		lw.println(tb.String())
	}
	return lw.err
}

// RenderClusters writes the keyword cluster section, exemplars in sorted
// order.
func RenderClusters(w io.Writer, res affinity.Result, m Mode) error {
	if m == JSON {
		return writeJSON(w, res)
	}
	if m == Text {
		lw := &lineWriter{w: w}
		lw.println("Keyword Clusters")
		for _, ex := range res.Exemplars() {
			lw.println("  ", ex, `: "`, strings.Join(res.Clusters[ex], `", "`), `"`)
		}
		lw.println()
		return lw.err
	}

	tb := format.NewTable(m.table())
	tb.Title("Keyword Clusters")
	tb.Header("Exemplar", "Size", "Members")
	tb.Columns(format.ColumnConfig{Number: 3, MaxWidth: 80})
	for _, ex := range res.Exemplars() {
		tb.Row(ex, len(res.Clusters[ex]), strings.Join(res.Clusters[ex], ", "))
	}
	_, err := fmt.Fprintln(w, tb.String())
	return err
}
