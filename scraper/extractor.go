package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"product-scraper/models"
)

// Selectors for the product cards of the e-commerce test site.
const (
	ProductSelector     = "div.thumbnail"
	TitleSelector       = "a.title"
	DescriptionSelector = "p.description"
	PriceSelector       = "h4.price"
)

// Extract parses raw HTML and returns one RawProduct per product card, in
// document order. A card missing any of its three fields fails the whole page
// with an *ExtractError. A page without cards yields an empty slice.
func Extract(raw []byte) ([]models.RawProduct, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}

	cards := doc.Find(ProductSelector)
	products := make([]models.RawProduct, 0, cards.Length())

	var extractErr error
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		p, err := parseProduct(i, card)
		if err != nil {
			extractErr = err
			return false
		}
		products = append(products, p)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	return products, nil
}

func parseProduct(index int, card *goquery.Selection) (models.RawProduct, error) {
	var p models.RawProduct
	fields := []struct {
		selector string
		dst      *string
	}{
		{TitleSelector, &p.Title},
		{DescriptionSelector, &p.Description},
		{PriceSelector, &p.RawPrice},
	}

	for _, f := range fields {
		sel := card.Find(f.selector).First()
		if sel.Length() == 0 {
			return models.RawProduct{}, &ExtractError{Index: index, Field: f.selector}
		}
		*f.dst = strings.TrimSpace(sel.Text())
	}
	return p, nil
}
