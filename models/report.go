package models

// Report names, in display order. DataReport holds the cleaned table itself.
const (
	BasicAnalysisReport  = "Basic Data Analysis"
	HighestPricesReport  = "Products with highest prices"
	CorrelationReport    = "Correlation Matrix"
	PriceExtremesReport  = "Minimum and Maximum Prices"
	PriceRangeReport     = "Price Range"
	PriceStdDevReport    = "Standard Deviation of Prices"
	PriceVariationReport = "Coefficient of Variation of Prices"
	DataReport           = "Data"
)

// Report is one named analysis result: pre-formatted text or a table.
type Report struct {
	Name  string
	Text  string
	Table *Table
}

// IsTable reports whether the report carries a table rather than text.
func (r Report) IsTable() bool { return r.Table != nil }

// Results maps report names to reports and remembers insertion order for display.
type Results struct {
	order   []string
	reports map[string]Report
}

// NewResults creates an empty result map.
func NewResults() *Results {
	return &Results{reports: make(map[string]Report)}
}

// Set adds or replaces a report. Replacing keeps the original position.
func (r *Results) Set(rep Report) {
	if _, exists := r.reports[rep.Name]; !exists {
		r.order = append(r.order, rep.Name)
	}
	r.reports[rep.Name] = rep
}

// Get looks up a report by name.
func (r *Results) Get(name string) (Report, bool) {
	rep, ok := r.reports[name]
	return rep, ok
}

// Keys returns report names in display order.
func (r *Results) Keys() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of reports.
func (r *Results) Len() int { return len(r.order) }

// Data returns the cleaned table stored under DataReport, if any.
func (r *Results) Data() *Table {
	rep, ok := r.reports[DataReport]
	if !ok {
		return nil
	}
	return rep.Table
}

// Correlation is a labelled square matrix of Pearson coefficients.
type Correlation struct {
	Labels []string
	Values [][]float64
}

// Empty reports whether the matrix has no columns.
func (c Correlation) Empty() bool { return len(c.Labels) == 0 }
