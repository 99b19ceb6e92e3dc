package storage

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"product-scraper/models"
)

const sheetName = "products"

type xlsxCodec struct{}

// write stores the table on a single sheet: header in row 1, numeric columns
// as number cells.
func (xlsxCodec) write(t *models.Table, path string) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("xlsx: close: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx: name sheet: %w", err)
	}

	header := make([]interface{}, 0, len(t.Columns()))
	for _, name := range t.ColumnNames() {
		header = append(header, name)
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	for i := 0; i < t.Len(); i++ {
		row := make([]interface{}, 0, len(t.Columns()))
		for _, c := range t.Columns() {
			if c.Kind == models.KindNumber {
				row = append(row, c.Num[i])
				continue
			}
			row = append(row, c.Text[i])
		}
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("xlsx: write row %d: %w", row, err)
	}
	return nil
}

// read loads the first sheet of the workbook.
func (xlsxCodec) read(path string) (*models.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open %q: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx: %q has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx: read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx: %q has no header row", path)
	}
	return buildTable(rows[0], rows[1:])
}
