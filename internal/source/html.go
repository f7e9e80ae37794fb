package source

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLToText renders an HTML document as plain text with one line per block
// element. Link targets are kept next to their anchor text so application
// links survive.
func HTMLToText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, head").Remove()
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := strings.TrimSpace(a.Text())
		if !strings.HasPrefix(href, "http") || strings.Contains(text, href) {
			return
		}
		a.SetText(text + " " + href)
	})
	breakLines(doc.Selection)
	doc.Find("p, div, li, tr, h1, h2, h3, h4, h5, h6, table").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return tidyLines(doc.Text()), nil
}

// breakLines turns <br> elements under s into newlines.
func breakLines(s *goquery.Selection) {
	s.Find("br").ReplaceWithHtml("\n")
}

// tidyLines trims every line, collapses inner whitespace and drops blank
// lines.
func tidyLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
