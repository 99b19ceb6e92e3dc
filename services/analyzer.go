package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"product-scraper/models"
	"product-scraper/utils"
)

// TopN is the number of rows in the highest prices report.
const TopN = 5

// PriceInsights holds the price statistics behind the text reports.
// A statistic that could not be computed is NaN and has its error set.
type PriceInsights struct {
	Count        int
	Min          float64
	Max          float64
	Range        float64
	Mean         float64
	StdDev       float64
	Variation    float64
	ExtremesErr  error
	StdDevErr    error
	VariationErr error
}

// Analyzer computes the fixed set of reports over a cleaned product table.
type Analyzer struct {
	logger *utils.Logger
}

func NewAnalyzer(logger *utils.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze builds the report map. The table must already be cleaned: its price
// column has to be numeric. The table itself is stored under models.DataReport.
func (a *Analyzer) Analyze(t *models.Table) (*models.Results, error) {
	price, err := numericPrice(t)
	if err != nil {
		return nil, err
	}

	insights := a.Insights(price.Num)
	corr := Correlate(t)
	results := models.NewResults()

	results.Set(models.Report{Name: models.BasicAnalysisReport, Text: describe(t)})
	results.Set(models.Report{Name: models.HighestPricesReport, Text: renderRows(t, TopByPrice(t, TopN), 0)})
	results.Set(models.Report{Name: models.CorrelationReport, Text: renderCorrelation(corr)})

	if insights.ExtremesErr != nil {
		results.Set(models.Report{Name: models.PriceExtremesReport, Text: fmt.Sprintf(
			"Minimum Price: %s\nMaximum Price: %s",
			undefinedBecause(insights.ExtremesErr), undefinedBecause(insights.ExtremesErr))})
		results.Set(models.Report{Name: models.PriceRangeReport, Text: "Price Range: " + undefinedBecause(insights.ExtremesErr)})
	} else {
		results.Set(models.Report{Name: models.PriceExtremesReport, Text: fmt.Sprintf(
			"Minimum Price: %s\nMaximum Price: %s", formatFloat(insights.Min), formatFloat(insights.Max))})
		results.Set(models.Report{Name: models.PriceRangeReport, Text: "Price Range: " + formatFloat(insights.Range)})
	}

	stdText := formatFloat(insights.StdDev)
	if insights.StdDevErr != nil {
		stdText = undefinedBecause(insights.StdDevErr)
	}
	results.Set(models.Report{Name: models.PriceStdDevReport, Text: "Standard Deviation of Prices: " + stdText})

	cvText := formatFloat(insights.Variation)
	if insights.VariationErr != nil {
		cvText = undefinedBecause(insights.VariationErr)
	}
	results.Set(models.Report{Name: models.PriceVariationReport, Text: "Coefficient of Variation of Prices: " + cvText})

	results.Set(models.Report{Name: models.DataReport, Table: t})

	a.logger.Info("[analyzer] Built %d reports over %d products", results.Len(), t.Len())
	return results, nil
}

// Insights computes extremes, range, sample standard deviation and
// coefficient of variation of the given prices.
func (a *Analyzer) Insights(prices []float64) PriceInsights {
	in := PriceInsights{Count: len(prices)}

	min, max, err := MinMax(prices)
	if err != nil {
		in.ExtremesErr = fmt.Errorf("%w: no prices", err)
		in.Min, in.Max, in.Range = math.NaN(), math.NaN(), math.NaN()
	} else {
		in.Min, in.Max, in.Range = min, max, max-min
	}

	s := Summarize(prices)
	in.Mean = s.Mean

	in.StdDev, err = SampleStdDev(prices)
	if err != nil {
		in.StdDevErr = fmt.Errorf("%w: need at least 2 prices, got %d", err, len(prices))
	}

	in.Variation, err = CoefficientOfVariation(in.StdDev, in.Mean)
	switch {
	case err == nil:
	case in.StdDevErr != nil:
		in.VariationErr = in.StdDevErr
	case errors.Is(err, ErrZeroMean):
		in.VariationErr = fmt.Errorf("%w: mean price is 0", err)
	default:
		in.VariationErr = err
	}

	if in.VariationErr != nil {
		a.logger.Warn("[analyzer] Coefficient of variation undefined: %v", in.VariationErr)
	}
	return in
}

// TopByPrice returns the row indexes of the n most expensive products,
// most expensive first. Equal prices keep their table order.
func TopByPrice(t *models.Table, n int) []int {
	col, ok := t.Column(models.ColumnPrice)
	if !ok || col.Kind != models.KindNumber {
		return nil
	}

	idx := indexes(t.Len())
	sort.SliceStable(idx, func(i, j int) bool {
		return col.Num[idx[i]] > col.Num[idx[j]]
	})
	if len(idx) > n {
		idx = idx[:n]
	}
	return idx
}

// Correlate returns the pairwise Pearson correlation of every numeric column.
// A table without numeric columns gives an empty matrix.
func Correlate(t *models.Table) models.Correlation {
	cols := t.NumericColumns()
	corr := models.Correlation{
		Labels: make([]string, len(cols)),
		Values: make([][]float64, len(cols)),
	}
	for i, ci := range cols {
		corr.Labels[i] = ci.Name
		corr.Values[i] = make([]float64, len(cols))
		for j, cj := range cols {
			corr.Values[i][j] = Pearson(ci.Num, cj.Num)
		}
	}
	return corr
}

func numericPrice(t *models.Table) (*models.Column, error) {
	col, ok := t.Column(models.ColumnPrice)
	if !ok {
		return nil, ErrNoPriceColumn
	}
	if col.Kind != models.KindNumber {
		return nil, fmt.Errorf("analyze: price column is not numeric, clean the table first")
	}
	return col, nil
}

// describe renders count, mean, std, min, quartiles and max of every numeric column.
func describe(t *models.Table) string {
	cols := t.NumericColumns()
	if len(cols) == 0 {
		return "No numeric columns to describe."
	}

	summaries := make([]Summary, len(cols))
	header := table.Row{""}
	for i, c := range cols {
		summaries[i] = Summarize(c.Num)
		header = append(header, c.Name)
	}

	w := table.NewWriter()
	w.AppendHeader(header)

	rows := []struct {
		label string
		get   func(Summary) string
	}{
		{"count", func(s Summary) string { return fmt.Sprintf("%d", s.Count) }},
		{"mean", func(s Summary) string { return formatStat(s.Mean) }},
		{"std", func(s Summary) string { return formatStat(s.Std) }},
		{"min", func(s Summary) string { return formatStat(s.Min) }},
		{"25%", func(s Summary) string { return formatStat(s.Q1) }},
		{"50%", func(s Summary) string { return formatStat(s.Q2) }},
		{"75%", func(s Summary) string { return formatStat(s.Q3) }},
		{"max", func(s Summary) string { return formatStat(s.Max) }},
	}
	for _, r := range rows {
		row := table.Row{r.label}
		for _, s := range summaries {
			row = append(row, r.get(s))
		}
		w.AppendRow(row)
	}
	w.SetStyle(table.StyleLight)
	w.Style().Format.Header = text.FormatDefault

	out := w.Render()
	for i, s := range summaries {
		if s.Count < 2 {
			out += fmt.Sprintf("\nNote: %s has %d value(s); std is undefined (insufficient data).", cols[i].Name, s.Count)
		}
	}
	return out
}

func renderCorrelation(c models.Correlation) string {
	if c.Empty() {
		return "Correlation matrix is empty: no numeric columns."
	}

	w := table.NewWriter()
	header := table.Row{""}
	for _, l := range c.Labels {
		header = append(header, l)
	}
	w.AppendHeader(header)
	for i, l := range c.Labels {
		row := table.Row{l}
		for _, v := range c.Values[i] {
			row = append(row, formatStat(v))
		}
		w.AppendRow(row)
	}
	w.SetStyle(table.StyleLight)
	w.Style().Format.Header = text.FormatDefault

	out := w.Render()
	if strings.Contains(out, undefined) {
		out += "\nNote: correlation is undefined for columns with fewer than 2 values or no variance."
	}
	return out
}
