package models

// Column names of a product table, in header order.
const (
	ColumnTitle       = "title"
	ColumnDescription = "description"
	ColumnPrice       = "price"
)

// ProductColumns is the fixed column set produced by the extractor.
var ProductColumns = []string{ColumnTitle, ColumnDescription, ColumnPrice}

// RawProduct holds one product card exactly as it was scraped.
// Price still carries its currency formatting, e.g. "$1,234.56".
type RawProduct struct {
	Title       string
	Description string
	RawPrice    string
}
