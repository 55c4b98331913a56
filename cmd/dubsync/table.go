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

// Wrap widths for free-text columns.
const (
	cueTextWidth    = 60
	sideBySideWidth = 36
	detailWidth     = 70
)

// column describes one table column. Cells wider than wrap are soft
// wrapped at word boundaries; zero leaves them unbounded.
type column struct {
	header string
	align  columnAlignment
	wrap   int
}

func leftColumn(header string) column  { return column{header: header, align: alignLeft} }
func rightColumn(header string) column { return column{header: header, align: alignRight} }

func textColumn(header string, wrap int) column {
	return column{header: header, wrap: wrap}
}

// renderTable renders rows under columns. Missing cells render empty and
// extra cells are ignored. A footer, when given, is aligned like the body.
func renderTable(columns []column, rows [][]string, footer ...string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(fitRow(nil, len(columns), func(i int) string { return columns[i].header }))
	for _, row := range rows {
		tw.AppendRow(fitRow(row, len(columns), nil))
	}
	if len(footer) > 0 {
		tw.AppendFooter(fitRow(footer, len(columns), nil))
	}

	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
			AlignFooter: text.AlignLeft,
		}
		if col.align == alignRight {
			cfg.Align = text.AlignRight
			cfg.AlignFooter = text.AlignRight
		}
		if col.wrap > 0 {
			cfg.WidthMax = col.wrap
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs = append(configs, cfg)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func fitRow(cells []string, width int, value func(int) string) table.Row {
	row := make(table.Row, width)
	for i := range width {
		switch {
		case value != nil:
			row[i] = value(i)
		case i < len(cells):
			row[i] = cells[i]
		default:
			row[i] = ""
		}
	}
	return row
}
