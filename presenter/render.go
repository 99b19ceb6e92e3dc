package presenter

import (
	"strings"

	"product-scraper/models"
	"product-scraper/services"
)

// cellWidth caps long text cells when a table report is rendered.
const cellWidth = 60

// Render formats a report for a text display: a starred banner with the
// report name, the body, and a closing rule.
func Render(rep models.Report) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(strings.Repeat("*", 10) + " " + rep.Name + " " + strings.Repeat("*", 10))
	b.WriteString("\n")
	b.WriteString(Body(rep))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("*", 60))
	b.WriteString("\n")
	return b.String()
}

// Body returns the report content without the banner.
func Body(rep models.Report) string {
	if rep.IsTable() {
		return services.RenderTable(rep.Table, cellWidth)
	}
	return rep.Text
}
