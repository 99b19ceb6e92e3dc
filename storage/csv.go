package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"product-scraper/models"
)

type csvCodec struct{}

// write creates (or truncates) the CSV file and writes the header row
// followed by every table row.
func (csvCodec) write(t *models.Table, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("csv: close %q: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		if err := w.Write(t.Row(i)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func (csvCodec) read(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: %q has no header row", path)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read rows: %w", err)
	}
	return buildTable(header, records)
}
