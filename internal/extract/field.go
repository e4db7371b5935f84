package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"jobs-scraper/pkg/utils"
)

// Field is the outcome of an optional lookup
type Field struct {
	Value   string
	Present bool
}

// Or returns the value when present, otherwise the sentinel
func (f Field) Or(sentinel string) string {
	if f.Present {
		return f.Value
	}
	return sentinel
}

// Optional returns the text of the first match of css inside sel.
// An empty selector, no match, or blank text gives a Field that is not present.
func Optional(sel *goquery.Selection, css string) Field {
	if css == "" {
		return Field{}
	}
	text := normalize(sel.Find(css).First().Text())
	if text == "" {
		return Field{}
	}
	return Field{Value: text, Present: true}
}

// Required is Optional that fails with a field extraction error when nothing is found
func Required(sel *goquery.Selection, css, name string) (string, error) {
	f := Optional(sel, css)
	if !f.Present {
		return "", utils.NewFieldExtractionError(name)
	}
	return f.Value, nil
}

// Attr returns an attribute of the first match of css inside sel
func Attr(sel *goquery.Selection, css, attr string) Field {
	if css == "" {
		return Field{}
	}
	value, ok := sel.Find(css).First().Attr(attr)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return Field{}
	}
	return Field{Value: value, Present: true}
}

// normalize composes Unicode (NFC) so accented text compares and exports consistently
func normalize(text string) string {
	return utils.CleanText(norm.NFC.String(text))
}
