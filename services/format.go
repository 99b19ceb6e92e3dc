package services

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"product-scraper/models"
)

const undefined = "undefined"

// RenderTable formats a product table as a bordered text grid. The first
// column is the zero-based row index. Long text cells are cut to maxWidth
// runes; zero means no limit.
func RenderTable(t *models.Table, maxWidth int) string {
	return renderRows(t, indexes(t.Len()), maxWidth)
}

func renderRows(t *models.Table, rows []int, maxWidth int) string {
	w := table.NewWriter()

	header := table.Row{"#"}
	for _, name := range t.ColumnNames() {
		header = append(header, name)
	}
	w.AppendHeader(header)

	for _, i := range rows {
		row := table.Row{i}
		for _, c := range t.Columns() {
			if c.Kind == models.KindNumber {
				row = append(row, formatFloat(c.Num[i]))
				continue
			}
			row = append(row, truncate(c.Text[i], maxWidth))
		}
		w.AppendRow(row)
	}

	w.SetStyle(table.StyleLight)
	w.Style().Format.Header = text.FormatDefault
	return w.Render()
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return undefined
	}
	return models.FormatNumber(f)
}

// formatStat renders describe-style statistics with fixed precision.
func formatStat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return undefined
	}
	return fmt.Sprintf("%.6f", f)
}

// undefinedBecause renders a statistic that could not be computed.
func undefinedBecause(err error) string {
	return fmt.Sprintf("%s (%v)", undefined, err)
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
