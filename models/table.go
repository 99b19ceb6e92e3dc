package models

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the value type held by a Column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
)

func (k Kind) String() string {
	if k == KindNumber {
		return "number"
	}
	return "text"
}

// Column is one named, typed column of a Table. Exactly one of Text or Num
// is populated, depending on Kind.
type Column struct {
	Name string
	Kind Kind
	Text []string
	Num  []float64
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	if c.Kind == KindNumber {
		return len(c.Num)
	}
	return len(c.Text)
}

// String renders the value at row i.
func (c *Column) String(i int) string {
	if c.Kind == KindNumber {
		return FormatNumber(c.Num[i])
	}
	return c.Text[i]
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Text != nil {
		out.Text = append([]string(nil), c.Text...)
	}
	if c.Num != nil {
		out.Num = append([]float64(nil), c.Num...)
	}
	return out
}

// Table is an ordered set of rows over a fixed set of named columns.
// Rows keep the order in which they were added; nothing is deduplicated.
type Table struct {
	columns []*Column
}

// NewTable creates an empty table with the given text columns.
func NewTable(names ...string) *Table {
	t := &Table{columns: make([]*Column, 0, len(names))}
	for _, n := range names {
		t.columns = append(t.columns, &Column{Name: n, Kind: KindText, Text: []string{}})
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// Columns returns the columns in header order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// ColumnNames returns the header.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// NumericColumns returns every column of KindNumber, in header order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.columns {
		if c.Kind == KindNumber {
			out = append(out, c)
		}
	}
	return out
}

// AppendRow adds a row of text values. Numeric columns parse their value.
func (t *Table) AppendRow(values ...string) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("table: row has %d values, want %d", len(values), len(t.columns))
	}
	// parse first so a bad value leaves the table unchanged
	nums := make([]float64, len(t.columns))
	for i, c := range t.columns {
		if c.Kind != KindNumber {
			continue
		}
		f, err := ParseNumber(values[i])
		if err != nil {
			return fmt.Errorf("table: column %q: %w", c.Name, err)
		}
		nums[i] = f
	}
	for i, c := range t.columns {
		if c.Kind == KindNumber {
			c.Num = append(c.Num, nums[i])
			continue
		}
		c.Text = append(c.Text, values[i])
	}
	return nil
}

// Row renders row i as strings in header order.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.String(i)
	}
	return row
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{columns: make([]*Column, len(t.columns))}
	for i, c := range t.columns {
		out.columns[i] = c.clone()
	}
	return out
}

// ReplaceColumn swaps in col for the column with the same name.
func (t *Table) ReplaceColumn(col *Column) error {
	for i, c := range t.columns {
		if c.Name == col.Name {
			if t.Len() != col.Len() {
				return fmt.Errorf("table: column %q has %d values, want %d", col.Name, col.Len(), t.Len())
			}
			t.columns[i] = col
			return nil
		}
	}
	return fmt.Errorf("table: no column %q", col.Name)
}

// SetNumeric converts the named text column to a numeric column by parsing
// every value. Used by loaders that infer column types.
func (t *Table) SetNumeric(name string) error {
	c, ok := t.Column(name)
	if !ok {
		return fmt.Errorf("table: no column %q", name)
	}
	if c.Kind == KindNumber {
		return nil
	}
	nums := make([]float64, len(c.Text))
	for i, s := range c.Text {
		f, err := ParseNumber(s)
		if err != nil {
			return fmt.Errorf("table: column %q row %d: %w", name, i, err)
		}
		nums[i] = f
	}
	return t.ReplaceColumn(&Column{Name: name, Kind: KindNumber, Num: nums})
}

// ParseNumber parses a finite float. NaN and infinities are rejected.
func ParseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return f, nil
}

// FormatNumber renders a float the shortest way that round-trips.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
