package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"product-scraper/models"
)

// UnsupportedFormatError is returned for paths that are neither .csv nor .xlsx.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("storage: unsupported file format %q (want .csv or .xlsx)", filepath.Ext(e.Path))
}

// codec reads and writes tables in one file format.
type codec interface {
	write(t *models.Table, path string) error
	read(path string) (*models.Table, error)
}

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return csvCodec{}, nil
	case ".xlsx":
		return xlsxCodec{}, nil
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}
}

// Save writes t to path as CSV or spreadsheet, chosen by the file extension.
// Missing parent directories are created and an existing file is overwritten.
func Save(t *models.Table, path string) error {
	c, err := codecFor(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("storage: create output dir: %w", err)
	}
	return c.write(t, path)
}

// Load reads a table written by Save. The price column is loaded as numeric
// when every value is a finite number; every other column stays text.
func Load(path string) (*models.Table, error) {
	c, err := codecFor(path)
	if err != nil {
		return nil, err
	}
	return c.read(path)
}

// buildTable assembles a table from a header and string records. Only the
// price column is inferred, so text such as a "007" title survives a round trip.
func buildTable(header []string, records [][]string) (*models.Table, error) {
	t := models.NewTable(header...)
	for i, rec := range records {
		// spreadsheets drop trailing empty cells
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		if err := t.AppendRow(rec[:len(header)]...); err != nil {
			return nil, fmt.Errorf("storage: row %d: %w", i+1, err)
		}
	}

	if len(records) == 0 {
		return t, nil
	}
	for col, name := range header {
		if name != models.ColumnPrice || !allNumeric(records, col) {
			continue
		}
		if err := t.SetNumeric(name); err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
	}
	return t, nil
}

func allNumeric(records [][]string, col int) bool {
	for _, rec := range records {
		if col >= len(rec) {
			return false
		}
		if _, err := models.ParseNumber(rec[col]); err != nil {
			return false
		}
	}
	return true
}
