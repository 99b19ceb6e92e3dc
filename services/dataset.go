package services

import "product-scraper/models"

// BuildTable turns extracted records into a product table, one row per record
// in the same order. The price column keeps its raw, currency-formatted text.
func BuildTable(records []models.RawProduct) *models.Table {
	t := models.NewTable(models.ProductColumns...)
	for _, r := range records {
		// column count always matches ProductColumns
		_ = t.AppendRow(r.Title, r.Description, r.RawPrice)
	}
	return t
}
