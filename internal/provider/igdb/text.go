package igdb

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText reduces an HTML fragment to whitespace-collapsed text. Values
// without markup are returned trimmed.
func plainText(value string) string {
	value = strings.TrimSpace(value)
	if !strings.ContainsAny(value, "<&") {
		return value
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return value
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("script,style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
