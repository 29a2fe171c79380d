package ingest

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// HTMLText extracts readable text from an HTML document. go-readability
// isolates the main content first; when it finds nothing, the whole body is used.
func HTMLText(html string, pageURL *url.URL) (string, error) {
	if pageURL == nil {
		pageURL = &url.URL{Scheme: "file", Path: "/document.html"}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
		if docErr == nil {
			text := normalizeText(collectText(doc.Selection))
			if text != "" {
				title := normalizeText(article.Title)
				if title != "" && !strings.HasPrefix(text, title) {
					text = title + " " + text
				}
				return text, nil
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	return normalizeText(collectText(body)), nil
}

var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// collectText concatenates every text node under s, separating nodes with a
// space so adjacent block elements do not fuse into one word.
func collectText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		if name == "#text" {
			b.WriteString(c.Text())
			b.WriteString(" ")
			return
		}
		if skippedTags[name] {
			return
		}
		b.WriteString(collectText(c))
	})
	return b.String()
}

// normalizeText collapses all whitespace runs into single spaces.
func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
