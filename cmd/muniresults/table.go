package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// column describes one column of a report table. MaxWidth of zero means unbounded.
type column struct {
	Header   string
	Align    columnAlignment
	MaxWidth int
}

// reportTable is a titled terminal table with an optional footer row.
type reportTable struct {
	Title   string
	Columns []column
	Rows    [][]string
	Footer  []string
}

func (t reportTable) render() string {
	if len(t.Columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if t.Title != "" {
		tw.SetTitle(t.Title)
	}

	tw.AppendHeader(t.row(columnHeaders(t.Columns)))
	for _, r := range t.Rows {
		tw.AppendRow(t.row(r))
	}
	if len(t.Footer) > 0 {
		tw.AppendFooter(t.row(t.Footer))
	}

	configs := make([]table.ColumnConfig, len(t.Columns))
	for i, c := range t.Columns {
		align := text.AlignLeft
		if c.Align == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignFooter: align,
			AlignHeader: text.AlignLeft,
			WidthMax:    c.MaxWidth,
		}
		if c.MaxWidth > 0 {
			configs[i].WidthMaxEnforcer = text.WrapHard
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// row pads or cuts values to the column count.
func (t reportTable) row(values []string) table.Row {
	r := make(table.Row, len(t.Columns))
	for i := range r {
		if i < len(values) {
			r[i] = values[i]
		} else {
			r[i] = ""
		}
	}
	return r
}

func columnHeaders(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Header
	}
	return out
}
