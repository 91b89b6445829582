package feed

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespaceRegexp = regexp.MustCompile(`\s+`)

// CleanText strips HTML markup from s and collapses whitespace,
// returning plain text suitable for analysis prompts and hashing.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	if strings.Contains(s, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("script, style").Remove()
			s = doc.Text()
		}
	}

	s = html.UnescapeString(s)
	s = whitespaceRegexp.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
