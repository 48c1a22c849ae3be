package writing

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cleanBody unwraps <html>/<body> wrappers and drops executable or embedded
// elements, returning the inner body markup.
func cleanBody(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	doc.Find("script, style, iframe, object, embed").Remove()

	body, err := doc.Find("body").Html()
	if err != nil {
		return content
	}
	return strings.TrimSpace(body)
}
