package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"product-scraper/models"
	"product-scraper/utils"
)

// ErrNoPriceColumn is returned when a table has no price column.
var ErrNoPriceColumn = errors.New("table has no price column")

// priceReplacer strips the currency symbol and thousands separators.
var priceReplacer = strings.NewReplacer("$", "", ",", "")

var errNonFinite = errors.New("price is not a finite number")

// ParseError is returned when a price cannot be read as a number.
type ParseError struct {
	Row   int // zero-based row index
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("clean: row %d: price %q is not a number", e.Row, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Cleaner normalises the price column of a product table.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean returns a copy of t whose price column is numeric. The input table is
// left untouched, so a failure never exposes a half-converted table.
// Cleaning a table whose price column is already numeric is a no-op copy.
func (c *Cleaner) Clean(t *models.Table) (*models.Table, error) {
	col, ok := t.Column(models.ColumnPrice)
	if !ok {
		return nil, ErrNoPriceColumn
	}

	out := t.Clone()
	if col.Kind == models.KindNumber {
		for i, p := range col.Num {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return nil, &ParseError{Row: i, Value: models.FormatNumber(p), Err: errNonFinite}
			}
		}
		c.logger.Debug("[cleaner] Price column already numeric, nothing to do")
		return out, nil
	}

	prices := make([]float64, len(col.Text))
	for i, raw := range col.Text {
		p, err := parsePrice(raw)
		if err != nil {
			return nil, &ParseError{Row: i, Value: raw, Err: err}
		}
		prices[i] = p
	}

	if err := out.ReplaceColumn(&models.Column{Name: models.ColumnPrice, Kind: models.KindNumber, Num: prices}); err != nil {
		return nil, err
	}

	c.logger.Info("[cleaner] Cleaned %d prices", len(prices))
	return out, nil
}

// parsePrice converts "$1,234.56" into 1234.56.
func parsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(priceReplacer.Replace(raw))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", errNonFinite, s)
	}
	return f, nil
}
